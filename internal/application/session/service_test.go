package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolstream/internal/domain"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s := args.Get(0); s != nil {
		return s.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s := args.Get(0); s != nil {
		return s.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, tenantID, role, sessionID string) (string, error) {
	args := m.Called(userID, tenantID, role, sessionID)
	return args.String(0), args.Error(1)
}

func testUser(password string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &domain.User{
		UserID:       "u1",
		TenantID:     "t1",
		Username:     "jdoe",
		Email:        "jdoe@example.org",
		PasswordHash: string(hash),
		Role:         domain.RoleTeacher,
		Enable:       true,
	}
}

func TestLogin_Success(t *testing.T) {
	users := new(mockUserStore)
	sessions := new(mockSessionStore)
	signer := new(mockSigner)

	u := testUser("s3cretpass")
	users.On("GetByUsername", mock.Anything, "jdoe").Return(u, nil)
	var saved *domain.Session
	sessions.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Session) }).
		Return(nil)
	signer.On("Sign", "u1", "t1", domain.RoleTeacher, mock.AnythingOfType("string")).Return("bearer-token", nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: sessions, JWTProvider: signer})
	result, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "s3cretpass"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", result.Bearer)
	assert.NotEmpty(t, result.RefreshToken)
	// Tenant and role are copied onto the session row so live admission can
	// trust it without a second user lookup.
	assert.Equal(t, "t1", saved.TenantID)
	assert.Equal(t, domain.RoleTeacher, saved.Role)
	assert.True(t, saved.Enable)
}

func TestLogin_FallsBackToEmailLookup(t *testing.T) {
	users := new(mockUserStore)
	sessions := new(mockSessionStore)
	signer := new(mockSigner)

	u := testUser("s3cretpass")
	users.On("GetByUsername", mock.Anything, "jdoe@example.org").Return(nil, domain.ErrNotFound)
	users.On("GetByEmail", mock.Anything, "jdoe@example.org").Return(u, nil)
	sessions.On("Put", mock.Anything, mock.Anything).Return(nil)
	signer.On("Sign", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("bearer-token", nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: sessions, JWTProvider: signer})
	_, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe@example.org", Password: "s3cretpass"})
	require.NoError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByUsername", mock.Anything, "jdoe").Return(testUser("s3cretpass"), nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: new(mockSessionStore), JWTProvider: new(mockSigner)})
	_, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_DisabledAccount(t *testing.T) {
	users := new(mockUserStore)
	u := testUser("s3cretpass")
	u.Enable = false
	users.On("GetByUsername", mock.Anything, "jdoe").Return(u, nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: new(mockSessionStore), JWTProvider: new(mockSigner)})
	_, err := svc.Login(context.Background(), LoginRequest{Username: "jdoe", Password: "s3cretpass"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetCurrent_AttachesUser(t *testing.T) {
	users := new(mockUserStore)
	sessions := new(mockSessionStore)

	u := testUser("x")
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{
		SessionID: "s1", UserID: "u1", TenantID: "t1", Role: domain.RoleTeacher, Enable: true,
	}, nil)
	users.On("Get", mock.Anything, "u1").Return(u, nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: sessions, JWTProvider: new(mockSigner)})
	sess, err := svc.GetCurrent(context.Background(), "s1")

	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "jdoe", sess.User.Username)
}

func TestGetCurrent_DisabledSessionRejected(t *testing.T) {
	sessions := new(mockSessionStore)
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: false}, nil)

	svc := NewService(Deps{UserRepo: new(mockUserStore), SessionRepo: sessions, JWTProvider: new(mockSigner)})
	_, err := svc.GetCurrent(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetCurrent_DisabledUserRejected(t *testing.T) {
	users := new(mockUserStore)
	sessions := new(mockSessionStore)

	u := testUser("x")
	u.Enable = false
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	users.On("Get", mock.Anything, "u1").Return(u, nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: sessions, JWTProvider: new(mockSigner)})
	_, err := svc.GetCurrent(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefresh_RotatesToken(t *testing.T) {
	users := new(mockUserStore)
	sessions := new(mockSessionStore)
	signer := new(mockSigner)

	u := testUser("x")
	sessions.On("GetByRefreshToken", mock.Anything, "old-token").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		RefreshToken:     "old-token",
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
		Enable:           true,
	}, nil)
	sessions.On("RotateRefreshToken", mock.Anything, "s1", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).Return(nil)
	users.On("Get", mock.Anything, "u1").Return(u, nil)
	signer.On("Sign", "u1", "t1", domain.RoleTeacher, "s1").Return("new-bearer", nil)

	svc := NewService(Deps{UserRepo: users, SessionRepo: sessions, JWTProvider: signer})
	bearer, newToken, err := svc.Refresh(context.Background(), "old-token")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, "old-token", newToken)
}

func TestRefresh_ExpiredTokenRejected(t *testing.T) {
	sessions := new(mockSessionStore)
	sessions.On("GetByRefreshToken", mock.Anything, "stale").Return(&domain.Session{
		SessionID:        "s1",
		RefreshExpiresAt: time.Now().Add(-time.Hour).Unix(),
		Enable:           true,
	}, nil)

	svc := NewService(Deps{UserRepo: new(mockUserStore), SessionRepo: sessions, JWTProvider: new(mockSigner)})
	_, _, err := svc.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
