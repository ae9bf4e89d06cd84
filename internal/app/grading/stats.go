package grading

import (
	"sort"

	"github.com/yigit/classroom/internal/app/models"
)

// QuestionStats aggregates answers for one question
type QuestionStats struct {
	QuestionID   string              `json:"questionId"`
	Title        string              `json:"title"`
	Type         models.QuestionType `json:"type"`
	Points       float64             `json:"points"`
	Answered     int                 `json:"answered"`
	CorrectCount int                 `json:"correctCount"`
	AverageScore float64             `json:"averageScore"`
	OptionCounts map[string]int      `json:"optionCounts,omitempty"`
}

// FormStats aggregates all responses to a form. Score statistics only consider
// fully graded responses.
type FormStats struct {
	ResponseCount int             `json:"responseCount"`
	GradedCount   int             `json:"gradedCount"`
	PendingCount  int             `json:"pendingCount"`
	TotalPoints   float64         `json:"totalPoints"`
	Mean          float64         `json:"mean"`
	Median        float64         `json:"median"`
	Min           float64         `json:"min"`
	Max           float64         `json:"max"`
	Questions     []QuestionStats `json:"questions"`
}

// Summarize computes statistics over responses to form
func Summarize(form *models.Form, responses []models.Response) FormStats {
	stats := FormStats{
		ResponseCount: len(responses),
		TotalPoints:   TotalPoints(form),
		Questions:     make([]QuestionStats, len(form.Questions)),
	}

	index := make(map[string]int, len(form.Questions))
	scoreSums := make([]float64, len(form.Questions))
	scoreCounts := make([]int, len(form.Questions))
	for i := range form.Questions {
		q := &form.Questions[i]
		index[q.ID] = i
		qs := QuestionStats{
			QuestionID: q.ID,
			Title:      q.Title,
			Type:       q.Type,
			Points:     q.Points,
		}
		if q.Type.IsChoice() {
			qs.OptionCounts = make(map[string]int, len(q.Options))
			for _, o := range q.Options {
				qs.OptionCounts[o.ID] = 0
			}
		}
		if q.Type == models.QuestionLinearScale {
			qs.OptionCounts = make(map[string]int)
		}
		stats.Questions[i] = qs
	}

	scores := make([]float64, 0, len(responses))
	for ri := range responses {
		r := &responses[ri]
		switch r.Status {
		case models.ResponseGraded:
			stats.GradedCount++
			scores = append(scores, r.Score)
		case models.ResponsePendingReview:
			stats.PendingCount++
		}

		for ai := range r.Answers {
			a := &r.Answers[ai]
			qi, ok := index[a.QuestionID]
			if !ok {
				continue
			}
			// unanswered questions still carry their automatic zero
			if !a.NeedsReview && (a.AutoScore != nil || a.ManualScore != nil) {
				scoreSums[qi] += a.Score
				scoreCounts[qi]++
			}
			if a.IsEmpty() {
				continue
			}
			qs := &stats.Questions[qi]
			qs.Answered++
			if a.Correct != nil && *a.Correct {
				qs.CorrectCount++
			}
			if qs.OptionCounts != nil {
				if form.Questions[qi].Type == models.QuestionLinearScale {
					qs.OptionCounts[a.Text]++
				} else {
					for _, id := range a.OptionIDs {
						qs.OptionCounts[id]++
					}
				}
			}
		}
	}

	for i := range stats.Questions {
		if scoreCounts[i] > 0 {
			stats.Questions[i].AverageScore = round2(scoreSums[i] / float64(scoreCounts[i]))
		}
	}

	if len(scores) > 0 {
		sort.Float64s(scores)
		var sum float64
		for _, s := range scores {
			sum += s
		}
		stats.Mean = round2(sum / float64(len(scores)))
		stats.Min = scores[0]
		stats.Max = scores[len(scores)-1]
		mid := len(scores) / 2
		if len(scores)%2 == 0 {
			stats.Median = round2((scores[mid-1] + scores[mid]) / 2)
		} else {
			stats.Median = scores[mid]
		}
	}
	return stats
}
