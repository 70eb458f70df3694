package services

import (
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

type SignUpInput struct {
	Email    string            `json:"email" validate:"required,max=254"`
	Password string            `json:"password" validate:"required,min=6,max=72"`
	FullName string            `json:"full_name" validate:"required,min=1,max=100"`
	Role     models.GlobalRole `json:"role" validate:"required,oneof=employer employee"`
}

type displayNameInput struct {
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
}

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

type AuthService struct {
	profileRepo  *repository.ProfileRepository
	tokenService *TokenService
	sessionTTL   time.Duration
	hashCost     int
}

func NewAuthService(profileRepo *repository.ProfileRepository, tokenService *TokenService, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		profileRepo:  profileRepo,
		tokenService: tokenService,
		sessionTTL:   sessionTTL,
		hashCost:     bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SignUp(input SignUpInput) (*models.Profile, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	existing, err := s.profileRepo.FindByEmail(input.Email)
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Role:         input.Role,
	}
	if err := s.profileRepo.Create(profile); err != nil {
		if err = storeErr("create profile", err); isConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return profile, nil
}

func (s *AuthService) SignIn(email, password string) (*Session, error) {
	profile, err := s.profileRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, apiToken, err := s.tokenService.GenerateToken(profile.ID, "session", s.sessionTTL)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: apiToken.ExpiresAt, Profile: profile}, nil
}

func (s *AuthService) SignOut(token string) error {
	return s.tokenService.Revoke(token)
}

func (s *AuthService) GetProfile(userID uint) (*models.Profile, error) {
	profile, err := s.profileRepo.FindByID(userID)
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

func (s *AuthService) UpdateDisplayName(userID uint, fullName string) (*models.Profile, error) {
	input := displayNameInput{FullName: strings.TrimSpace(fullName)}
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if _, err := s.GetProfile(userID); err != nil {
		return nil, err
	}
	if err := s.profileRepo.UpdateFullName(userID, input.FullName); err != nil {
		return nil, storeErr("update profile", err)
	}
	return s.GetProfile(userID)
}

// DeleteAccount removes the profile, its tokens and memberships, and every
// team it owns.
func (s *AuthService) DeleteAccount(userID uint) error {
	if _, err := s.GetProfile(userID); err != nil {
		return err
	}
	return storeErr("delete account", s.profileRepo.DeleteCascade(userID))
}
