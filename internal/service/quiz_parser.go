package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseQuestionsFile reads questions for bulk import from filename.
func ParseQuestionsFile(filename string) ([]Question, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseQuestions(file)
}

// ParseQuestions reads one question per line:
//
//	text | option1 | option2 | option3 | answer | difficulty | category id
//
// Blank lines and lines starting with # are skipped.
func ParseQuestions(r io.Reader) ([]Question, error) {
	var questions []Question
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		q, err := parseQuestionLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		questions = append(questions, q)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading questions: %w", err)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no valid questions found")
	}

	return questions, nil
}

func parseQuestionLine(line string) (Question, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 7 {
		return Question{}, fmt.Errorf("expected 7 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if utf8.RuneCountInString(parts[0]) == 0 {
		return Question{}, fmt.Errorf("question cannot be empty")
	}

	answer, err := strconv.Atoi(parts[4])
	if err != nil {
		return Question{}, fmt.Errorf("invalid answer: %w", err)
	}
	if !Option(answer).Valid() {
		return Question{}, fmt.Errorf("answer must be 1, 2 or 3, got %d", answer)
	}

	difficulty := Difficulty(parts[5])
	if !difficulty.Valid() {
		return Question{}, fmt.Errorf("unknown difficulty %q", parts[5])
	}

	categoryID, err := strconv.Atoi(parts[6])
	if err != nil {
		return Question{}, fmt.Errorf("invalid category id: %w", err)
	}

	return Question{
		Text:       parts[0],
		Option1:    parts[1],
		Option2:    parts[2],
		Option3:    parts[3],
		Answer:     Option(answer),
		Difficulty: difficulty,
		CategoryID: categoryID,
	}, nil
}
