package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dealerhub/internal/entities"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUsernameTaken      = errors.New("username already exists")
)

// UserStore is the slice of the user repository the auth flow needs.
type UserStore interface {
	Create(user *entities.User) error
	GetByUsername(username string) (*entities.User, error)
}

// AuthUsecase issues dashboard tokens. Accounts belong to a dealership
// (company_id) and the claim scopes what the dashboard may manage; disabled
// accounts keep their password but cannot log in.
type AuthUsecase struct {
	userRepo  UserStore
	jwtSecret []byte
}

func NewAuthUsecase(repo UserStore, secret string) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  repo,
		jwtSecret: []byte(secret),
	}
}

// Register creates an active non-admin account bound to a dealership.
func (uc *AuthUsecase) Register(username, password string, companyID int) error {
	existing, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return uc.userRepo.Create(&entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "user",
		CompanyID:    companyID,
	})
}

func (uc *AuthUsecase) Login(username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrAccountDisabled
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    user.ID,
		"role":       user.Role,
		"company_id": user.CompanyID,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the bootstrap admin account on startup if it does not
// exist yet.
func (uc *AuthUsecase) EnsureAdmin(username, password string) error {
	user, err := uc.userRepo.GetByUsername(username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.userRepo.Create(&entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "admin",
	})
}
