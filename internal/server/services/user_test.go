package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/cryptox"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/orders"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newTestUserService(t *testing.T, m repomanager.RepositoryManager, signer cryptox.PasswordSigner) (*UserService, *auth.TokenService) {
	t.Helper()
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService("test-secret", auth.TokenTTL)
	require.NoError(t, err)
	return NewUserService(nil, m, hasher, tokens, signer, logging.Nop()), tokens
}

type failingUsersRepo struct{ err error }

func (f failingUsersRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}
func (f failingUsersRepo) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f failingUsersRepo) GetUserByID(context.Context, int64) (*models.User, error) {
	return nil, f.err
}
func (f failingUsersRepo) Ensure(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}

type fakeManager struct {
	users  users.Repository
	orders orders.Repository
}

func (f fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f fakeManager) Users(dbx.DBTX) users.Repository             { return f.users }
func (f fakeManager) Orders(dbx.DBTX) orders.Repository           { return f.orders }

// --- tests ---

func TestRegisterThenLogin_SameUser(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "a", reg.User.Name)
	assert.Equal(t, common.RoleUser, reg.User.Role)

	claims, err := tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.ID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, common.RoleUser, claims.Role)

	login, err := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	loginClaims, err := tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, loginClaims.ID)
}

func TestRegister_KeepsGivenName(t *testing.T) {
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "  jo@x.io ", Password: "secret1", Name: "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "Jo", res.User.Name)
	assert.Equal(t, "jo@x.io", res.User.Email)
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc, _ := newTestUserService(t, m, nil)

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := m.Users(nil).GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	assert.Nil(t, stored.PasswordSig, "no signer configured")
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "other-pass"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, RegisterInput{Email: "race@x.io", Password: "secret1"})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "secret1"}},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "secret1"}},
		{"short password", RegisterInput{Email: "a@b.com", Password: "12345"}},
		{"missing password", RegisterInput{Email: "a@b.com"}},
		{"short name", RegisterInput{Email: "a@b.com", Password: "secret1", Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestLogin_InvalidCredentialsAreUndifferentiated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pass"})
	_, unknown := svc.Login(ctx, LoginInput{Email: "ghost@b.com", Password: "secret1"})

	require.ErrorIs(t, wrongPass, common.ErrInvalidCredentials)
	require.ErrorIs(t, unknown, common.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestLogin_Validation(t *testing.T) {
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "123"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_RepoError(t *testing.T) {
	svc, _ := newTestUserService(t, fakeManager{users: failingUsersRepo{err: errors.New("db down")}}, nil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "secret1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrInvalidCredentials))
	assert.ErrorContains(t, err, "db down")
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	claims, err := tokens.Verify(reg.Token)
	require.NoError(t, err)

	me, err := svc.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, me.ID)
	assert.Equal(t, "a@b.com", me.Email)
	assert.False(t, me.CreatedAt.IsZero())

	_, err = svc.Me(ctx, &auth.Claims{ID: 999})
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.Me(ctx, nil)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	signer := cryptox.NewArgon2Signer("sig-key")
	svc, _ := newTestUserService(t, m, signer)

	admin, err := svc.CreateUser(ctx, CreateUserInput{Email: "c@d.com", Password: "secret1", Role: common.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, common.RoleAdmin, admin.Role)
	assert.Equal(t, "c", admin.Name)

	plain, err := svc.CreateUser(ctx, CreateUserInput{Email: "e@f.com", Password: "secret1", Name: "Eve"})
	require.NoError(t, err)
	assert.Equal(t, common.RoleUser, plain.Role)

	stored, err := m.Users(nil).GetUserByEmail(ctx, "c@d.com")
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordSig)
	assert.Equal(t, signer.Sign("secret1"), *stored.PasswordSig)

	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "c@d.com", Password: "secret1"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "c@d.com", Password: "secret1", Role: "root"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateUser_RepoError(t *testing.T) {
	svc, _ := newTestUserService(t, fakeManager{users: failingUsersRepo{err: errors.New("db down")}}, nil)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "c@d.com", Password: "secret1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrConflict))
}

func TestPasswordByteLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, repomanager.NewMemoryRepositoryManager(), nil)

	atLimit := strings.Repeat("p", auth.MaxPasswordBytes)
	_, err := svc.Register(ctx, RegisterInput{Email: "max@b.com", Password: atLimit})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "max@b.com", Password: atLimit})
	require.NoError(t, err)

	tooLong := atLimit + "p"
	// 37 two-byte runes pass the rune minimum but exceed the byte limit.
	multiByte := strings.Repeat("é", 37)

	for _, pw := range []string{tooLong, multiByte} {
		_, err = svc.Register(ctx, RegisterInput{Email: "long@b.com", Password: pw})
		require.ErrorIs(t, err, common.ErrValidation)

		_, err = svc.CreateUser(ctx, CreateUserInput{Email: "long@b.com", Password: pw})
		require.ErrorIs(t, err, common.ErrValidation)

		_, err = svc.Login(ctx, LoginInput{Email: "max@b.com", Password: pw})
		require.ErrorIs(t, err, common.ErrValidation)
	}
}
