package usecases

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dealerhub/internal/entities"
)

type fakeUserStore struct {
	users map[string]*entities.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*entities.User)}
}

func (f *fakeUserStore) Create(u *entities.User) error {
	cp := *u
	cp.ID = len(f.users) + 1
	cp.IsActive = true
	f.users[u.Username] = &cp
	return nil
}

func (f *fakeUserStore) GetByUsername(username string) (*entities.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func TestAuthLogin(t *testing.T) {
	store := newFakeUserStore()
	auth := NewAuthUsecase(store, "test-secret")
	require.NoError(t, auth.Register("dealer", "hunter22", 9))

	t.Run("token carries role and company scope", func(t *testing.T) {
		tokenString, err := auth.Login("dealer", "hunter22")
		require.NoError(t, err)

		token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		require.NoError(t, err)
		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, "user", claims["role"])
		assert.Equal(t, float64(9), claims["company_id"])
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := auth.Login("dealer", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		_, err := auth.Login("nobody", "hunter22")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account cannot log in", func(t *testing.T) {
		store.users["dealer"].IsActive = false
		defer func() { store.users["dealer"].IsActive = true }()

		_, err := auth.Login("dealer", "hunter22")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthRegister(t *testing.T) {
	store := newFakeUserStore()
	auth := NewAuthUsecase(store, "test-secret")

	require.NoError(t, auth.Register("dealer", "hunter22", 9))
	u := store.users["dealer"]
	require.NotNil(t, u)
	assert.Equal(t, "user", u.Role)
	assert.Equal(t, 9, u.CompanyID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")))

	assert.ErrorIs(t, auth.Register("dealer", "other", 1), ErrUsernameTaken)
}

func TestEnsureAdmin(t *testing.T) {
	store := newFakeUserStore()
	auth := NewAuthUsecase(store, "test-secret")

	require.NoError(t, auth.EnsureAdmin("root", "root"))
	require.NotNil(t, store.users["root"])
	assert.Equal(t, "admin", store.users["root"].Role)

	// Idempotent: a second boot does not recreate or reset the account.
	store.users["root"].PasswordHash = "keep"
	require.NoError(t, auth.EnsureAdmin("root", "root"))
	assert.Equal(t, "keep", store.users["root"].PasswordHash)
}
