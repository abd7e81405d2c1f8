package store

import (
	"fmt"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// Raw rows never leave this package; mapQuestions and category are the only
// places schema values become domain values.

type categoryRow struct {
	ID    int    `gorm:"column:id;primaryKey;autoIncrement"`
	Name  string `gorm:"column:name"`
	Mixed bool   `gorm:"column:mixed"`
}

func (categoryRow) TableName() string { return "categories" }

type questionRow struct {
	ID         int    `gorm:"column:id;primaryKey;autoIncrement"`
	Question   string `gorm:"column:question"`
	Option1    string `gorm:"column:option1"`
	Option2    string `gorm:"column:option2"`
	Option3    string `gorm:"column:option3"`
	AnswerNr   int    `gorm:"column:answer_nr"`
	Difficulty string `gorm:"column:difficulty"`
	CategoryID int    `gorm:"column:category_id"`
}

func (questionRow) TableName() string { return "questions" }

func toCategoryRow(c service.Category) categoryRow {
	return categoryRow{ID: c.ID, Name: c.Name, Mixed: c.Mixed}
}

func (r categoryRow) category() service.Category {
	return service.Category{ID: r.ID, Name: r.Name, Mixed: r.Mixed}
}

func toQuestionRow(q service.Question) questionRow {
	return questionRow{
		ID:         q.ID,
		Question:   q.Text,
		Option1:    q.Option1,
		Option2:    q.Option2,
		Option3:    q.Option3,
		AnswerNr:   int(q.Answer),
		Difficulty: string(q.Difficulty),
		CategoryID: q.CategoryID,
	}
}

func mapQuestions(rows []questionRow) ([]service.Question, error) {
	out := make([]service.Question, 0, len(rows))
	for _, r := range rows {
		answer := service.Option(r.AnswerNr)
		if !answer.Valid() {
			return nil, fmt.Errorf("question %d: stored answer %d out of range", r.ID, r.AnswerNr)
		}
		out = append(out, service.Question{
			ID:         r.ID,
			Text:       r.Question,
			Option1:    r.Option1,
			Option2:    r.Option2,
			Option3:    r.Option3,
			Answer:     answer,
			Difficulty: service.Difficulty(r.Difficulty),
			CategoryID: r.CategoryID,
		})
	}
	return out, nil
}
