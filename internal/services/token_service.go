package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

const tokenIssuer = "quest-and-check"

type TokenClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

type TokenService struct {
	tokenRepo   *repository.TokenRepository
	profileRepo *repository.ProfileRepository
	jwtSecret   string
	now         func() time.Time
}

func NewTokenService(tokenRepo *repository.TokenRepository, profileRepo *repository.ProfileRepository, jwtSecret string) *TokenService {
	return &TokenService{
		tokenRepo:   tokenRepo,
		profileRepo: profileRepo,
		jwtSecret:   jwtSecret,
		now:         time.Now,
	}
}

// GenerateToken issues a bearer token for userID and persists it so it can
// be listed and revoked.
func (s *TokenService) GenerateToken(userID uint, label string, expiresIn time.Duration) (string, *models.APIToken, error) {
	profile, err := s.profileRepo.FindByID(userID)
	if err != nil {
		return "", nil, storeErr("load profile", err)
	}
	if profile == nil {
		return "", nil, ErrUserNotFound
	}

	now := s.now()
	expiresAt := now.Add(expiresIn)
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, err
	}

	apiToken := &models.APIToken{
		UserID:    userID,
		Token:     tokenString,
		Label:     label,
		ExpiresAt: expiresAt,
	}
	if err := s.tokenRepo.Create(apiToken); err != nil {
		return "", nil, storeErr("create token", err)
	}

	return tokenString, apiToken, nil
}

// ValidateToken accepts a token only if its signature verifies and it has not
// been revoked or expired.
func (s *TokenService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	dbToken, err := s.tokenRepo.FindActive(tokenString, s.now())
	if err != nil {
		return nil, storeErr("load token", err)
	}
	if dbToken == nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) ListUserTokens(userID uint) ([]models.APIToken, error) {
	tokens, err := s.tokenRepo.FindByUserID(userID)
	if err != nil {
		return nil, storeErr("list tokens", err)
	}
	return tokens, nil
}

func (s *TokenService) DeleteToken(tokenID, userID uint) error {
	ok, err := s.tokenRepo.Delete(tokenID, userID)
	if err != nil {
		return storeErr("delete token", err)
	}
	if !ok {
		return ErrTokenNotFound
	}
	return nil
}

func (s *TokenService) Revoke(tokenString string) error {
	return storeErr("revoke token", s.tokenRepo.DeleteByToken(tokenString))
}

func (s *TokenService) PurgeExpired() (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(s.now())
	return n, storeErr("purge tokens", err)
}
