package auth

import (
	"context"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/token"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository. Without an override each method
// works against an in-memory table, so flows can run end to end; set an fn
// field to inject failures.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*User

	createFn        func(ctx context.Context, user *User) error
	findByIDFn      func(ctx context.Context, id string) (*User, error)
	updateProfileFn func(ctx context.Context, id, name, email string) error
	addCourseFn     func(ctx context.Context, userID, courseID string) error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*User)}
}

func copyUser(u *User) *User {
	cp := *u
	cp.Courses = slices.Clone(u.Courses)
	if u.Avatar != nil {
		a := *u.Avatar
		cp.Avatar = &a
	}
	return &cp
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.NewConflict("Email already exists")
		}
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NewNotFound("User not found")
	}
	return copyUser(u), nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NewNotFound("User not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if apperror.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (m *mockUserRepo) mutate(id string, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NewNotFound("User not found")
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name, email string) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, name, email)
	}
	return m.mutate(id, func(u *User) { u.Name, u.Email = name, email })
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.mutate(id, func(u *User) { u.PasswordHash = passwordHash })
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, id string, avatar Avatar) error {
	return m.mutate(id, func(u *User) { u.Avatar = &avatar })
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id string, role Role) error {
	return m.mutate(id, func(u *User) { u.Role = role })
}

func (m *mockUserRepo) AddCourse(ctx context.Context, userID, courseID string) error {
	if m.addCourseFn != nil {
		return m.addCourseFn(ctx, userID, courseID)
	}
	return m.mutate(userID, func(u *User) {
		if !slices.Contains(u.Courses, courseID) {
			u.Courses = append(u.Courses, courseID)
		}
	})
}

func (m *mockUserRepo) List(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperror.NewNotFound("User not found")
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// --- Mock Mailer ---

type mockMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	sendFn func(ctx context.Context, msg mail.Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.sendFn != nil {
		if err := m.sendFn(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail was sent")
	return m.sent[len(m.sent)-1]
}

// --- Mock Asset Store ---

type mockAssets struct {
	uploadFn func(ctx context.Context, input media.UploadInput) (media.Asset, error)
	deleted  []string
}

func (m *mockAssets) Upload(ctx context.Context, input media.UploadInput) (media.Asset, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, input)
	}
	return media.Asset{PublicID: input.Folder + "/new.png", URL: "http://assets.test/" + input.Folder + "/new.png"}, nil
}

func (m *mockAssets) Delete(_ context.Context, publicID string) error {
	m.deleted = append(m.deleted, publicID)
	return nil
}

// --- Mock Identity Provider ---

type mockProvider struct {
	verifyFn   func(ctx context.Context, raw string) (SocialInput, error)
	exchangeFn func(ctx context.Context, code string) (SocialInput, error)
}

func (m *mockProvider) VerifyIDToken(ctx context.Context, raw string) (SocialInput, error) {
	return m.verifyFn(ctx, raw)
}

func (m *mockProvider) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (SocialInput, error) {
	return m.exchangeFn(ctx, code)
}

// --- Test Environment ---

// testEnv wires the real services over the mocks and an in-memory cache.
type testEnv struct {
	repo     *mockUserRepo
	store    *cache.MemoryStore
	sessions *SessionStore
	tokens   *token.Issuer
	mailer   *mockMailer
	assets   *mockAssets
	auth     AuthService
	users    UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:     "test-access-secret-0123456789abcdef",
		RefreshSecret:    "test-refresh-secret-0123456789abcdef",
		ActivationSecret: "test-activation-secret-0123456789ab",
		AccessTTL:        5 * time.Minute,
		RefreshTTL:       72 * time.Hour,
	})
	require.NoError(t, err)

	env := &testEnv{
		repo:   newMockUserRepo(),
		store:  cache.NewMemoryStore(),
		tokens: issuer,
		mailer: &mockMailer{},
		assets: &mockAssets{},
	}
	env.sessions = NewSessionStore(env.store, 7*24*time.Hour)
	env.auth = NewAuthService(env.repo, env.sessions, env.tokens, env.mailer)
	env.users = NewUserService(env.repo, env.sessions, env.assets)
	return env
}

// seedUser inserts an activated user with the given password.
func (env *testEnv) seedUser(t *testing.T, email, password string, role Role) *User {
	t.Helper()
	hash, err := hashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := &User{
		ID:           "user-" + email,
		Name:         "Test " + email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
		Courses:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, env.repo.Create(context.Background(), u))
	return u
}
