package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "quiz.db")
}

func TestOpenSeedsStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, tempDB(t))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, service.Category{ID: 1, Name: "Programming"}, categories[0])
	assert.Equal(t, service.Category{ID: 4, Name: "All categories", Mixed: true}, categories[3])

	for _, d := range service.AllDifficulties() {
		questions, err := s.ListQuestions(ctx, d)
		require.NoError(t, err)
		for _, q := range questions {
			assert.Equal(t, d, q.Difficulty)
			assert.True(t, q.Answer.Valid())
			assert.NotEmpty(t, q.Text)
		}
	}
}

func TestListQuestionsHard(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, tempDB(t))

	all, err := s.ListQuestions(ctx, service.DifficultyHard)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	programming, err := s.ListQuestionsByCategory(ctx, 1, service.DifficultyHard)
	require.NoError(t, err)
	assert.Len(t, programming, 2)
	for _, q := range programming {
		assert.Equal(t, 1, q.CategoryID)
	}

	// the mixed entry has no questions of its own
	mixed, err := s.ListQuestionsByCategory(ctx, 4, service.DifficultyHard)
	require.NoError(t, err)
	assert.Empty(t, mixed)
}

func TestListQuestionsEasy(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, tempDB(t))

	easy, err := s.ListQuestions(ctx, service.DifficultyEasy)
	require.NoError(t, err)
	assert.Len(t, easy, 6)

	geography, err := s.ListQuestionsByCategory(ctx, 2, service.DifficultyEasy)
	require.NoError(t, err)
	assert.Len(t, geography, 2)
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := tempDB(t)

	first, err := Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	s := openTestStore(t, path)
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 4)

	hard, err := s.ListQuestions(ctx, service.DifficultyHard)
	require.NoError(t, err)
	assert.Len(t, hard, 5)
}

func TestOpenReseedsOnVersionChange(t *testing.T) {
	ctx := context.Background()
	path := tempDB(t)

	old, err := Open(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	_, err = old.AddCategory(ctx, service.Category{Name: "History"})
	require.NoError(t, err)
	_, _, err = old.Highscore().Submit(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, old.db.Exec("PRAGMA user_version = 1").Error)
	require.NoError(t, old.Close())

	s := openTestStore(t, path)
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 4, "old content replaced by the seed")

	var version int
	require.NoError(t, s.db.Raw("PRAGMA user_version").Scan(&version).Error)
	assert.Equal(t, SchemaVersion, version)

	h, err := s.Highscore().Highscore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, h, "highscore survives a reseed")
}

func TestOpenFailures(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Path: tempDB(t), SeedFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	assert.ErrorIs(t, err, service.ErrStoreInit)

	_, err = Open(ctx, Config{Path: filepath.Join(t.TempDir(), "no", "such", "dir", "quiz.db")}, nil)
	assert.ErrorIs(t, err, service.ErrStoreInit)

	bad := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
categories:
  - id: 1
    name: Only
questions:
  - text: Broken
    options: [a, b, c]
    answer: 5
    difficulty: Easy
    category: 1
`), 0o644))
	_, err = Open(ctx, Config{Path: tempDB(t), SeedFile: bad}, nil)
	assert.ErrorIs(t, err, service.ErrStoreInit)
}

func TestOpenWithCustomSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - id: 1
    name: Science
questions:
  - text: H2O is?
    options: [Water, Salt, Air]
    answer: 1
    difficulty: Medium
    category: 1
`), 0o644))

	s, err := Open(ctx, Config{Path: tempDB(t), SeedFile: path}, nil)
	require.NoError(t, err)
	defer s.Close()

	questions, err := s.ListQuestionsByCategory(ctx, 1, service.DifficultyMedium)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Water", questions[0].OptionText(questions[0].Answer))
}

func TestAddQuestions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, tempDB(t))

	c, err := s.AddCategory(ctx, service.Category{Name: "History"})
	require.NoError(t, err)
	assert.Equal(t, 5, c.ID)

	q, err := s.AddQuestion(ctx, service.Question{
		Text: "Year of the moon landing?", Option1: "1965", Option2: "1969", Option3: "1972",
		Answer: service.Option2, Difficulty: service.DifficultyMedium, CategoryID: c.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, q.ID)

	got, err := s.ListQuestionsByCategory(ctx, c.ID, service.DifficultyMedium)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q, got[0])
}

func TestAddQuestionsRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, tempDB(t))

	valid := service.Question{Text: "ok", Option1: "a", Option2: "b", Option3: "c", Answer: service.Option1, Difficulty: service.DifficultyEasy, CategoryID: 1}

	unknownCategory := valid
	unknownCategory.CategoryID = 99
	_, err := s.AddQuestions(ctx, []service.Question{valid, unknownCategory})
	require.Error(t, err)

	// all or nothing
	easy, err := s.ListQuestionsByCategory(ctx, 1, service.DifficultyEasy)
	require.NoError(t, err)
	assert.Len(t, easy, 2)

	badAnswer := valid
	badAnswer.Answer = service.OptionNone
	_, err = s.AddQuestion(ctx, badAnswer)
	assert.Error(t, err)

	badDifficulty := valid
	badDifficulty.Difficulty = "Brutal"
	_, err = s.AddQuestion(ctx, badDifficulty)
	assert.Error(t, err)

	_, err = s.AddCategory(ctx, service.Category{Name: "  "})
	assert.Error(t, err)
}

func TestHighscore(t *testing.T) {
	ctx := context.Background()
	h := openTestStore(t, tempDB(t)).Highscore()

	v, err := h.Highscore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	best, updated, err := h.Submit(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, best)
	assert.True(t, updated)

	best, updated, err = h.Submit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, best)
	assert.False(t, updated)

	best, updated, err = h.Submit(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, best)
	assert.True(t, updated)
}

func TestParseSeed(t *testing.T) {
	seed, err := LoadSeed("")
	require.NoError(t, err)
	assert.Len(t, seed.Categories, 4)
	assert.Len(t, seed.Questions, 17)

	_, err = ParseSeed([]byte("categories: []"))
	assert.Error(t, err)

	_, err = ParseSeed([]byte(`
categories: [{id: 1, name: A}]
questions:
  - {text: q, options: [a, b], answer: 1, difficulty: Easy, category: 1}
`))
	assert.Error(t, err)
}
