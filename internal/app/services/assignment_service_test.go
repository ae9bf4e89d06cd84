package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func TestAssignmentService_CreateNotifiesStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	class := env.class(t, teacher, alice, bob)

	_, err := env.svc.Assignment.Create(ctx, alice, class.ID, &dto.CreateAssignmentRequest{Title: "Sneaky", Points: 10})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "  ", Points: 10})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	a, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{
		Title:       "Lab report",
		Points:      20,
		Attachments: []dto.AttachmentRequest{{Name: "sheet.pdf", URL: "/uploads/sheet.pdf"}},
	})
	require.NoError(t, err)
	assert.Len(t, a.Attachments, 1)

	for _, s := range []int64{alice.UserID, bob.UserID} {
		notes := env.notifications(t, s)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotificationAssignmentCreated, notes[0].Type)
		assert.Equal(t, classLink(class.ID, "assignments", "1"), notes[0].Link)
	}
	assert.Empty(t, env.notifications(t, teacher.UserID))
	assert.Empty(t, env.mail.Sent(), "assignment announcements are not emailed")

	list, err := env.svc.Assignment.ListByClass(ctx, bob, class.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAssignmentService_SubmitDeadline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	class := env.class(t, teacher, student)
	due := env.now.Add(time.Hour)

	strict, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Strict", Points: 10, DueAt: &due})
	require.NoError(t, err)
	lenient, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Lenient", Points: 10, DueAt: &due, AllowLate: true})
	require.NoError(t, err)

	_, err = env.svc.Assignment.Submit(ctx, student, strict.ID, &dto.SubmitAssignmentRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	sub, err := env.svc.Assignment.Submit(ctx, student, strict.ID, &dto.SubmitAssignmentRequest{Text: "on time"})
	require.NoError(t, err)
	assert.False(t, sub.Late)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)

	_, err = env.svc.Assignment.Submit(ctx, teacher, strict.ID, &dto.SubmitAssignmentRequest{Text: "teacher"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	env.now = due.Add(time.Minute)

	_, err = env.svc.Assignment.Submit(ctx, student, strict.ID, &dto.SubmitAssignmentRequest{Text: "too late"})
	assert.ErrorIs(t, err, apperrors.ErrDeadlinePassed)

	late, err := env.svc.Assignment.Submit(ctx, student, lenient.ID, &dto.SubmitAssignmentRequest{Text: "late but allowed"})
	require.NoError(t, err)
	assert.True(t, late.Late)

	mine, err := env.svc.Assignment.MySubmission(ctx, student, strict.ID)
	require.NoError(t, err)
	assert.Equal(t, "on time", mine.Text)
}

func TestAssignmentService_ArchivedClassRejectsSubmissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	class := env.class(t, teacher, student)

	a, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Essay", Points: 10})
	require.NoError(t, err)
	_, err = env.svc.Class.Update(ctx, teacher, class.ID, &dto.UpdateClassRequest{Archived: ptr(true)})
	require.NoError(t, err)

	_, err = env.svc.Assignment.Submit(ctx, student, a.ID, &dto.SubmitAssignmentRequest{Text: "draft"})
	assert.ErrorIs(t, err, apperrors.ErrClassArchived)
}

func TestAssignmentService_Grade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	class := env.class(t, teacher, student)

	a, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Essay", Points: 50})
	require.NoError(t, err)
	sub, err := env.svc.Assignment.Submit(ctx, student, a.ID, &dto.SubmitAssignmentRequest{Text: "my essay"})
	require.NoError(t, err)

	_, err = env.svc.Assignment.Grade(ctx, student, sub.ID, &dto.GradeSubmissionRequest{Grade: ptr(50.0)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = env.svc.Assignment.Grade(ctx, teacher, sub.ID, &dto.GradeSubmissionRequest{Grade: ptr(50.5)})
	assert.ErrorIs(t, err, apperrors.ErrPointsOutOfRange)

	graded, err := env.svc.Assignment.Grade(ctx, teacher, sub.ID, &dto.GradeSubmissionRequest{Grade: ptr(42.456), Feedback: " good "})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 42.46, *graded.Grade)
	assert.Equal(t, "good", graded.Feedback)
	assert.Equal(t, models.SubmissionReturned, graded.Status)

	notes := env.notifications(t, student.UserID)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotificationSubmissionGraded, notes[0].Type)

	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "stud@school.edu", sent[0].To)
	assert.Equal(t, "Graded: Essay", sent[0].Subject)

	// resubmitting keeps the grade until the teacher grades again
	resub, err := env.svc.Assignment.Submit(ctx, student, a.ID, &dto.SubmitAssignmentRequest{Text: "revised"})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resub.ID)

	subs, err := env.svc.Assignment.ListSubmissions(ctx, teacher, a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "revised", subs[0].Text)
	require.NotNil(t, subs[0].Grade)
	assert.Equal(t, 42.46, *subs[0].Grade)
	require.NotNil(t, subs[0].Student)
	assert.Equal(t, "stud", subs[0].Student.Username)
}

func TestAssignmentService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	class := env.class(t, teacher, student)
	due := env.now.Add(24 * time.Hour)

	a, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Quiz prep", Points: 5, DueAt: &due})
	require.NoError(t, err)

	updated, err := env.svc.Assignment.Update(ctx, teacher, a.ID, &dto.UpdateAssignmentRequest{Title: ptr("Quiz prep v2"), ClearDueAt: true})
	require.NoError(t, err)
	assert.Equal(t, "Quiz prep v2", updated.Title)
	assert.Nil(t, updated.DueAt)

	_, err = env.svc.Assignment.Update(ctx, student, a.ID, &dto.UpdateAssignmentRequest{Title: ptr("hacked")})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, env.svc.Assignment.Delete(ctx, teacher, a.ID))
	_, err = env.svc.Assignment.Get(ctx, student, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
}
