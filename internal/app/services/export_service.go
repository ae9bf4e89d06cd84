package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/grading"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
)

// XLSXContentType is the MIME type of exported spreadsheets
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Spreadsheet is a generated workbook ready to be sent
type Spreadsheet struct {
	Filename string
	Data     []byte
}

// ExportService builds XLSX reports of responses and grades
type ExportService struct {
	repos  *repositories.Repositories
	authz  *authz.AuthorizationService
	logger zerolog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(repos *repositories.Repositories, authorization *authz.AuthorizationService, logger zerolog.Logger) *ExportService {
	return &ExportService{
		repos:  repos,
		authz:  authorization,
		logger: logger,
	}
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileSlug turns a title into a filename fragment
func fileSlug(title string) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(title, "-"), "-")
	if slug == "" {
		return "export"
	}
	return strings.ToLower(slug)
}

// answerText renders an answer the way it reads in a spreadsheet cell
func answerText(q *models.Question, a *models.Answer) string {
	if a == nil {
		return ""
	}
	if q.Type.IsChoice() {
		labels := make([]string, 0, len(a.OptionIDs))
		for _, id := range a.OptionIDs {
			labels = append(labels, q.OptionLabel(id))
		}
		return strings.Join(labels, ", ")
	}
	return a.Text
}

// writeRows writes rows to sheet starting at A1 and bolds the header row
func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func finish(f *excelize.File, filename string) (*Spreadsheet, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return &Spreadsheet{Filename: filename, Data: buf.Bytes()}, nil
}

// ExportFormResponses builds a workbook with one row per response and a statistics sheet
func (s *ExportService) ExportFormResponses(ctx context.Context, actor authz.Actor, formID int64) (*Spreadsheet, error) {
	form, err := s.repos.FormRepository.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireClassTeacher(ctx, actor, form.ClassID); err != nil {
		return nil, err
	}

	responses, err := s.repos.ResponseRepository.ListByForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	ids := make([]int64, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.UserID)
	}
	users, err := s.repos.UserRepository.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load respondents: %w", err)
	}

	header := []interface{}{"Username", "Name", "Submitted At", "Status", "Score", "Total Points"}
	for _, q := range form.Questions {
		header = append(header, q.Title)
	}
	rows := [][]interface{}{header}
	for _, r := range responses {
		username, name := "", ""
		if u, ok := users[r.UserID]; ok {
			username, name = u.Username, u.FullName()
		}
		row := []interface{}{username, name, r.SubmittedAt.UTC().Format(time.RFC3339), string(r.Status), r.Score, r.TotalPoints}
		for i := range form.Questions {
			q := &form.Questions[i]
			a, _ := r.Answer(q.ID)
			row = append(row, answerText(q, a))
		}
		rows = append(rows, row)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	const responsesSheet, statsSheet = "Responses", "Statistics"
	if err := f.SetSheetName("Sheet1", responsesSheet); err != nil {
		return nil, err
	}
	if err := writeRows(f, responsesSheet, rows); err != nil {
		return nil, fmt.Errorf("failed to write responses: %w", err)
	}

	values := make([]models.Response, 0, len(responses))
	for _, r := range responses {
		values = append(values, *r)
	}
	stats := grading.Summarize(form, values)
	statRows := [][]interface{}{
		{"Question", "Type", "Points", "Answered", "Correct", "Average Score"},
	}
	for _, qs := range stats.Questions {
		statRows = append(statRows, []interface{}{qs.Title, string(qs.Type), qs.Points, qs.Answered, qs.CorrectCount, qs.AverageScore})
	}
	statRows = append(statRows,
		[]interface{}{},
		[]interface{}{"Responses", stats.ResponseCount},
		[]interface{}{"Graded", stats.GradedCount},
		[]interface{}{"Mean", stats.Mean},
		[]interface{}{"Median", stats.Median},
		[]interface{}{"Min", stats.Min},
		[]interface{}{"Max", stats.Max},
	)
	if _, err := f.NewSheet(statsSheet); err != nil {
		return nil, err
	}
	if err := writeRows(f, statsSheet, statRows); err != nil {
		return nil, fmt.Errorf("failed to write statistics: %w", err)
	}

	return finish(f, fmt.Sprintf("%s-responses.xlsx", fileSlug(form.Title)))
}

// ExportGradebook builds a students by coursework grade matrix for a class
func (s *ExportService) ExportGradebook(ctx context.Context, actor authz.Actor, classID int64) (*Spreadsheet, error) {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	studentIDs, err := s.repos.ClassRepository.MemberIDs(ctx, classID, models.MemberStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	users, err := s.repos.UserRepository.GetByIDs(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	assignments, err := s.repos.AssignmentRepository.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	submissions, err := s.repos.AssignmentRepository.ListSubmissionsByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	forms, err := s.repos.FormRepository.ListByClass(ctx, classID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	responses, err := s.repos.ResponseRepository.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	type key struct{ item, user int64 }
	grades := make(map[key]*models.Submission, len(submissions))
	for _, sub := range submissions {
		grades[key{sub.AssignmentID, sub.StudentID}] = sub
	}
	// responses come in submission order, so the latest one wins
	scores := make(map[key]*models.Response, len(responses))
	for _, r := range responses {
		scores[key{r.FormID, r.UserID}] = r
	}

	quizzes := make([]*models.Form, 0, len(forms))
	for _, f := range forms {
		if f.Settings.IsQuiz {
			quizzes = append(quizzes, f)
		}
	}

	header := []interface{}{"Username", "Name"}
	for _, a := range assignments {
		header = append(header, fmt.Sprintf("%s (%g)", a.Title, a.Points))
	}
	for _, f := range quizzes {
		header = append(header, fmt.Sprintf("%s (%g)", f.Title, grading.TotalPoints(f)))
	}
	rows := [][]interface{}{header}

	for _, id := range studentIDs {
		u, ok := users[id]
		if !ok {
			continue
		}
		row := []interface{}{u.Username, u.FullName()}
		for _, a := range assignments {
			sub := grades[key{a.ID, id}]
			switch {
			case sub == nil:
				row = append(row, "")
			case sub.Grade == nil:
				row = append(row, "submitted")
			default:
				row = append(row, *sub.Grade)
			}
		}
		for _, f := range quizzes {
			r := scores[key{f.ID, id}]
			switch {
			case r == nil:
				row = append(row, "")
			case r.Status != models.ResponseGraded:
				row = append(row, "pending")
			default:
				row = append(row, r.Score)
			}
		}
		rows = append(rows, row)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	const sheet = "Gradebook"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return nil, fmt.Errorf("failed to write gradebook: %w", err)
	}
	return finish(f, fmt.Sprintf("%s-gradebook.xlsx", fileSlug(access.Class.Name)))
}
