package model

import (
	"time"

	"github.com/google/uuid"
)

type Quiz struct {
	ID        uuid.UUID
	Title     string
	Active    bool
	CreatedBy string
	Questions []Question
	CreatedAt time.Time
}

type QuizSummary struct {
	ID            uuid.UUID
	Title         string
	Active        bool
	CreatedAt     time.Time
	QuestionCount int
}

type Question struct {
	ID           uuid.UUID
	QuizID       uuid.UUID
	Position     int
	Question     string
	Options      []string
	CorrectIndex int
}

// QuestionSet is one dispensed slice of a quiz. Bounds are half-open:
// questions cover [StartIndex, EndIndex).
type QuestionSet struct {
	QuizID         uuid.UUID
	Questions      []Question
	StartIndex     int
	EndIndex       int
	TotalQuestions int
}
