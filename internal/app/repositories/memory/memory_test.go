package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

var (
	_ repositories.IUserRepository         = (*UserRepository)(nil)
	_ repositories.ITokenRepository        = (*TokenRepository)(nil)
	_ repositories.IClassRepository        = (*ClassRepository)(nil)
	_ repositories.IAssignmentRepository   = (*AssignmentRepository)(nil)
	_ repositories.IFormRepository         = (*FormRepository)(nil)
	_ repositories.IResponseRepository     = (*ResponseRepository)(nil)
	_ repositories.IMaterialRepository     = (*MaterialRepository)(nil)
	_ repositories.ICommentRepository      = (*CommentRepository)(nil)
	_ repositories.INotificationRepository = (*NotificationRepository)(nil)
)

func seedUser(t *testing.T, repos *repositories.Repositories, username string, role models.RoleType) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@school.edu", RoleType: role, IsActive: true}
	require.NoError(t, repos.UserRepository.Create(context.Background(), u))
	return u
}

func TestUserRepository_Uniqueness(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	seedUser(t, repos, "alice", models.RoleStudent)

	err := repos.UserRepository.Create(ctx, &models.User{Username: "ALICE", Email: "other@school.edu"})
	assert.ErrorIs(t, err, apperrors.ErrUsernameExists)

	err = repos.UserRepository.Create(ctx, &models.User{Username: "bob", Email: "Alice@School.edu"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	found, err := repos.UserRepository.GetByIdentifier(ctx, "ALICE@school.edu")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	_, err = repos.UserRepository.GetByIdentifier(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestClassRepository_Membership(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	student := seedUser(t, repos, "student", models.RoleStudent)

	class := &models.Class{Name: "Physics", Code: "ABC1234", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))

	dup := &models.Class{Name: "Chemistry", Code: "ABC1234", TeacherID: teacher.ID}
	assert.ErrorIs(t, repos.ClassRepository.Create(ctx, dup), apperrors.ErrConflict)

	owner, err := repos.ClassRepository.GetMember(ctx, class.ID, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberTeacher, owner.Role)

	require.NoError(t, repos.ClassRepository.AddMember(ctx, &models.ClassMember{ClassID: class.ID, UserID: student.ID, Role: models.MemberStudent}))
	err = repos.ClassRepository.AddMember(ctx, &models.ClassMember{ClassID: class.ID, UserID: student.ID, Role: models.MemberStudent})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyEnrolled)

	members, err := repos.ClassRepository.ListMembers(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, teacher.ID, members[0].UserID)
	assert.Equal(t, "student", members[1].User.Username)

	ids, err := repos.ClassRepository.MemberIDs(ctx, class.ID, models.MemberStudent)
	require.NoError(t, err)
	assert.Equal(t, []int64{student.ID}, ids)

	byCode, err := repos.ClassRepository.GetByCode(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, class.ID, byCode.ID)

	classes, total, err := repos.ClassRepository.ListForUser(ctx, student.ID, false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, classes, 1)

	require.NoError(t, repos.ClassRepository.RemoveMember(ctx, class.ID, student.ID))
	assert.ErrorIs(t, repos.ClassRepository.RemoveMember(ctx, class.ID, student.ID), apperrors.ErrNotClassMember)
}

func TestClassRepository_DeleteCascades(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)

	class := &models.Class{Name: "Biology", Code: "BIO0001", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))
	form := &models.Form{ClassID: class.ID, Title: "Quiz"}
	require.NoError(t, repos.FormRepository.Create(ctx, form))
	require.NoError(t, repos.ResponseRepository.Create(ctx, &models.Response{FormID: form.ID, ClassID: class.ID, UserID: teacher.ID}, false))
	assignment := &models.Assignment{ClassID: class.ID, Title: "Essay"}
	require.NoError(t, repos.AssignmentRepository.Create(ctx, assignment))

	require.NoError(t, repos.ClassRepository.Delete(ctx, class.ID))

	_, err := repos.FormRepository.GetByID(ctx, form.ID)
	assert.ErrorIs(t, err, apperrors.ErrFormNotFound)
	_, err = repos.AssignmentRepository.GetByID(ctx, assignment.ID)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
	assert.Empty(t, store.responses)
}

func TestDocumentsAreCopied(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	class := &models.Class{Name: "Math", Code: "MAT0001", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))

	form := &models.Form{ClassID: class.ID, Title: "Quiz", Questions: []models.Question{{ID: "q1", Title: "One"}}}
	require.NoError(t, repos.FormRepository.Create(ctx, form))

	form.Questions[0].Title = "changed"
	loaded, err := repos.FormRepository.GetByID(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", loaded.Questions[0].Title)

	loaded.Questions[0].Title = "also changed"
	again, err := repos.FormRepository.GetByID(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", again.Questions[0].Title)
}

func TestResponseRepository_ExclusiveCreate(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	class := &models.Class{Name: "Math", Code: "MAT0002", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))
	form := &models.Form{ClassID: class.ID, Title: "Quiz"}
	require.NoError(t, repos.FormRepository.Create(ctx, form))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repos.ResponseRepository.Create(ctx, &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 42}, true)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyResponded)
	}
	assert.Equal(t, 1, succeeded)

	// non-exclusive submissions are unrestricted
	require.NoError(t, repos.ResponseRepository.Create(ctx, &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 42}, false))
	mine, err := repos.ResponseRepository.ListByUser(ctx, form.ID, 42)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestResponseRepository_ReleaseGraded(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	class := &models.Class{Name: "Math", Code: "MAT0003", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))
	form := &models.Form{ClassID: class.ID, Title: "Quiz"}
	require.NoError(t, repos.FormRepository.Create(ctx, form))

	graded := &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 1, Status: models.ResponseGraded}
	pending := &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 2, Status: models.ResponsePendingReview}
	require.NoError(t, repos.ResponseRepository.Create(ctx, graded, false))
	require.NoError(t, repos.ResponseRepository.Create(ctx, pending, false))

	released, err := repos.ResponseRepository.ReleaseGraded(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, graded.ID, released[0].ID)
	assert.True(t, released[0].Released)

	again, err := repos.ResponseRepository.ReleaseGraded(ctx, form.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestResponseRepository_Mutate(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	class := &models.Class{Name: "Math", Code: "MAT0004", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))
	form := &models.Form{ClassID: class.ID, Title: "Quiz"}
	require.NoError(t, repos.FormRepository.Create(ctx, form))
	resp := &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 1, Status: models.ResponsePendingReview}
	require.NoError(t, repos.ResponseRepository.Create(ctx, resp, false))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.ResponseRepository.Mutate(ctx, resp.ID, func(r *models.Response) error {
				r.Score++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repos.ResponseRepository.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.Score)

	_, err = repos.ResponseRepository.Mutate(ctx, resp.ID, func(r *models.Response) error {
		r.Score = 99
		return apperrors.ErrBadRequest
	})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	stored, err = repos.ResponseRepository.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.Score, "a failed mutation writes nothing")

	_, err = repos.ResponseRepository.Mutate(ctx, 999, func(*models.Response) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrResponseNotFound)
}

func TestResponseRepository_Attempts(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	teacher := seedUser(t, repos, "teacher", models.RoleTeacher)
	class := &models.Class{Name: "Math", Code: "MAT0005", TeacherID: teacher.ID}
	require.NoError(t, repos.ClassRepository.Create(ctx, class))
	form := &models.Form{ClassID: class.ID, Title: "Quiz"}
	require.NoError(t, repos.FormRepository.Create(ctx, form))
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	open, err := repos.ResponseRepository.GetAttempt(ctx, form.ID, 7)
	require.NoError(t, err)
	assert.Nil(t, open)

	started, err := repos.ResponseRepository.StartAttempt(ctx, form.ID, 7, first)
	require.NoError(t, err)
	assert.Equal(t, first, started)

	started, err = repos.ResponseRepository.StartAttempt(ctx, form.ID, 7, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, started, "restarting keeps the original start")

	require.NoError(t, repos.ResponseRepository.Create(ctx, &models.Response{FormID: form.ID, ClassID: class.ID, UserID: 7}, false))
	open, err = repos.ResponseRepository.GetAttempt(ctx, form.ID, 7)
	require.NoError(t, err)
	assert.Nil(t, open, "submitting closes the attempt")

	_, err = repos.ResponseRepository.StartAttempt(ctx, 999, 7, first)
	assert.ErrorIs(t, err, apperrors.ErrFormNotFound)
}

func TestNotificationRepository(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	repo := store.Repositories().NotificationRepository
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateMany(ctx, []*models.Notification{
			{UserID: 7, Type: models.NotificationFormPublished, Title: "n"},
			{UserID: 8, Type: models.NotificationFormPublished, Title: "n"},
		}))
	}

	items, total, err := repo.List(ctx, 7, false, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	require.NoError(t, repo.MarkRead(ctx, items[0].ID, 7, base))
	assert.ErrorIs(t, repo.MarkRead(ctx, items[0].ID, 8, base), apperrors.ErrNotificationAbsent)

	unread, err := repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	changed, err := repo.MarkAllRead(ctx, 7, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	_, total, err = repo.List(ctx, 7, true, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.ErrorIs(t, repo.Delete(ctx, items[1].ID, 8), apperrors.ErrNotificationAbsent)
	require.NoError(t, repo.Delete(ctx, items[1].ID, 7))
}
