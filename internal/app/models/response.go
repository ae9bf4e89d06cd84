package models

import (
	"strings"
	"time"
)

// ResponseStatus is the grading state of a response
type ResponseStatus string

const (
	ResponseSubmitted     ResponseStatus = "SUBMITTED"
	ResponsePendingReview ResponseStatus = "PENDING_REVIEW"
	ResponseGraded        ResponseStatus = "GRADED"
)

// Answer is one answered question inside a response
type Answer struct {
	QuestionID  string   `json:"questionId"`
	Text        string   `json:"text,omitempty"`
	OptionIDs   []string `json:"optionIds,omitempty"`
	AutoScore   *float64 `json:"autoScore,omitempty"`
	ManualScore *float64 `json:"manualScore,omitempty"`
	Score       float64  `json:"score"`
	NeedsReview bool     `json:"needsReview"`
	Correct     *bool    `json:"correct,omitempty"`
	Feedback    string   `json:"feedback,omitempty"`
}

// IsEmpty reports whether the answer carries no value
func (a *Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Text) == "" && len(a.OptionIDs) == 0
}

// Response is a user's submission to a form
type Response struct {
	ID          int64          `json:"id" db:"id"`
	FormID      int64          `json:"formId" db:"form_id"`
	ClassID     int64          `json:"classId" db:"class_id"`
	UserID      int64          `json:"userId" db:"user_id"`
	Answers     []Answer       `json:"answers" db:"answers"`
	Score       float64        `json:"score" db:"score"`
	TotalPoints float64        `json:"totalPoints" db:"total_points"`
	Status      ResponseStatus `json:"status" db:"status"`
	Released    bool           `json:"released" db:"released"`
	StartedAt   *time.Time     `json:"startedAt,omitempty" db:"started_at"`
	SubmittedAt time.Time      `json:"submittedAt" db:"submitted_at"`
	GradedAt    *time.Time     `json:"gradedAt,omitempty" db:"graded_at"`
	GradedBy    *int64         `json:"gradedBy,omitempty" db:"graded_by"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// Answer looks up the answer for a question id
func (r *Response) Answer(questionID string) (*Answer, bool) {
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			return &r.Answers[i], true
		}
	}
	return nil, false
}
