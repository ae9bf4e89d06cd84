package models

import "time"

// QuestionType identifies how a question is answered and scored
type QuestionType string

const (
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionParagraph      QuestionType = "PARAGRAPH"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionCheckboxes     QuestionType = "CHECKBOXES"
	QuestionDropdown       QuestionType = "DROPDOWN"
	QuestionTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionLinearScale    QuestionType = "LINEAR_SCALE"
)

// IsValid reports whether t is a known question type
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionShortAnswer, QuestionParagraph, QuestionMultipleChoice, QuestionCheckboxes,
		QuestionDropdown, QuestionTrueFalse, QuestionLinearScale:
		return true
	}
	return false
}

// IsChoice reports whether answers are given as option ids
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionMultipleChoice, QuestionCheckboxes, QuestionDropdown, QuestionTrueFalse:
		return true
	}
	return false
}

// IsSingleChoice reports whether at most one option may be selected
func (t QuestionType) IsSingleChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionDropdown || t == QuestionTrueFalse
}

// ScoreRelease controls when students see their score
type ScoreRelease string

const (
	ReleaseImmediately ScoreRelease = "IMMEDIATELY"
	ReleaseAfterReview ScoreRelease = "AFTER_REVIEW"
)

// QuestionOption is one selectable choice
type QuestionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is a single item of a form. IDs are strings that stay stable across edits.
type Question struct {
	ID               string           `json:"id"`
	Type             QuestionType     `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Required         bool             `json:"required"`
	Points           float64          `json:"points"`
	Options          []QuestionOption `json:"options,omitempty"`
	CorrectOptionIDs []string         `json:"correctOptionIds,omitempty"`
	AcceptedAnswers  []string         `json:"acceptedAnswers,omitempty"`
	CaseSensitive    bool             `json:"caseSensitive,omitempty"`
	PartialCredit    bool             `json:"partialCredit,omitempty"`
	ScaleMin         int              `json:"scaleMin,omitempty"`
	ScaleMax         int              `json:"scaleMax,omitempty"`
}

// HasOption reports whether id names one of the question's options
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// OptionLabel returns the label for an option id, or the id itself when unknown
func (q *Question) OptionLabel(id string) string {
	for _, o := range q.Options {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

// FormSettings holds quiz and availability settings
type FormSettings struct {
	IsQuiz             bool         `json:"isQuiz"`
	ShuffleQuestions   bool         `json:"shuffleQuestions"`
	ShuffleOptions     bool         `json:"shuffleOptions"`
	OpensAt            *time.Time   `json:"opensAt,omitempty"`
	ClosesAt           *time.Time   `json:"closesAt,omitempty"`
	LimitOneResponse   bool         `json:"limitOneResponse"`
	ReleaseScores      ScoreRelease `json:"releaseScores"`
	ShowCorrectAnswers bool         `json:"showCorrectAnswers"`
	TimeLimitMinutes   int          `json:"timeLimitMinutes,omitempty"`
}

// Form is an exam, quiz or survey owned by a class
type Form struct {
	ID          int64        `json:"id" db:"id"`
	ClassID     int64        `json:"classId" db:"class_id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Questions   []Question   `json:"questions" db:"questions"`
	Settings    FormSettings `json:"settings" db:"settings"`
	Published   bool         `json:"published" db:"published"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty" db:"published_at"`
	CreatedBy   int64        `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Question looks up a question by id
func (f *Form) Question(id string) (*Question, bool) {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i], true
		}
	}
	return nil, false
}
