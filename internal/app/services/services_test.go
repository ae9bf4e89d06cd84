package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/app/repositories/memory"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/email"
	"github.com/yigit/classroom/internal/pkg/filestorage"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type publishedEvent struct {
	room  string
	event websocket.Event
}

// recordingPublisher captures published events instead of delivering them
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, room string, event websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{room: room, event: event})
	return p.err
}

func (p *recordingPublisher) rooms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.room)
	}
	return out
}

// memStorage keeps uploaded file metadata in memory
type memStorage struct {
	mu     sync.Mutex
	seq    int
	files  map[string]int64
	failOn string
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string]int64)}
}

func (m *memStorage) Save(_ context.Context, fh *multipart.FileHeader, subPath string) (*filestorage.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fh.Filename == m.failOn {
		return nil, errors.New("disk full")
	}
	m.seq++
	key := fmt.Sprintf("%s/%d-%s", subPath, m.seq, fh.Filename)
	m.files["/uploads/"+key] = fh.Size
	return &filestorage.FileInfo{
		Name:     fh.Filename,
		Key:      key,
		URL:      "/uploads/" + key,
		Size:     fh.Size,
		MimeType: "application/pdf",
	}, nil
}

func (m *memStorage) Delete(_ context.Context, fileURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, fileURL)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type testEnv struct {
	svc   *Services
	repos *repositories.Repositories
	pub   *recordingPublisher
	mail  *email.ConsoleSender
	files *memStorage
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repos: memory.NewRepositories(),
		pub:   &recordingPublisher{},
		mail:  email.NewConsoleSender("Classroom", "noreply@classroom.test", zerolog.Nop()),
		files: newMemStorage(),
		now:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.svc = NewServices(Dependencies{
		Repos: env.repos,
		JWT: auth.NewJWTService(auth.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenExp:  time.Hour,
			RefreshTokenExp: 24 * time.Hour,
			TokenIssuer:     "classroom-test",
		}),
		Storage:        env.files,
		MaxUploadBytes: 1 << 20,
		Publisher:      env.pub,
		Mailer:         env.mail,
		Logger:         zerolog.Nop(),
		Now:            func() time.Time { return env.now },
	})
	return env
}

func (e *testEnv) user(t *testing.T, username string, role models.RoleType) authz.Actor {
	t.Helper()
	u := &models.User{
		Username:  username,
		Email:     username + "@school.edu",
		FirstName: username,
		LastName:  "Test",
		RoleType:  role,
		IsActive:  true,
	}
	require.NoError(t, e.repos.UserRepository.Create(context.Background(), u))
	return authz.Actor{UserID: u.ID, Role: role}
}

func (e *testEnv) class(t *testing.T, teacher authz.Actor, students ...authz.Actor) *dto.ClassResponse {
	t.Helper()
	ctx := context.Background()
	class, err := e.svc.Class.Create(ctx, teacher, &dto.CreateClassRequest{Name: "Physics 101"})
	require.NoError(t, err)
	for _, s := range students {
		_, err := e.svc.Class.Join(ctx, s, class.Code)
		require.NoError(t, err)
	}
	return class
}

func (e *testEnv) notifications(t *testing.T, userID int64) []*models.Notification {
	t.Helper()
	items, _, err := e.repos.NotificationRepository.List(context.Background(), userID, false, 1, 100)
	require.NoError(t, err)
	return items
}

func ptr[T any](v T) *T {
	return &v
}
