package store

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

//go:embed seed/seed.yaml
var defaultSeed []byte

// Seed is the bundled initial content of the store.
type Seed struct {
	Categories []service.Category `yaml:"categories"`
	Questions  []seedQuestion     `yaml:"questions"`
}

type seedQuestion struct {
	Text       string   `yaml:"text"`
	Options    []string `yaml:"options"`
	Answer     int      `yaml:"answer"`
	Difficulty string   `yaml:"difficulty"`
	Category   int      `yaml:"category"`
}

// LoadSeed parses the seed at path, or the embedded one when path is empty.
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(seed.Categories) == 0 {
		return nil, fmt.Errorf("seed has no categories")
	}
	for i, q := range seed.Questions {
		if _, err := q.question(); err != nil {
			return nil, fmt.Errorf("seed question %d: %w", i, err)
		}
	}
	return &seed, nil
}

func (q seedQuestion) question() (service.Question, error) {
	if len(q.Options) != 3 {
		return service.Question{}, fmt.Errorf("want 3 options, got %d", len(q.Options))
	}
	out := service.Question{
		Text:       q.Text,
		Option1:    q.Options[0],
		Option2:    q.Options[1],
		Option3:    q.Options[2],
		Answer:     service.Option(q.Answer),
		Difficulty: service.Difficulty(q.Difficulty),
		CategoryID: q.Category,
	}
	return out, validateQuestion(out)
}

func (s *Seed) questions() []service.Question {
	out := make([]service.Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		// validated in ParseSeed
		sq, _ := q.question()
		out = append(out, sq)
	}
	return out
}
