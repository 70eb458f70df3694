package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	BucketTaskPhotos = "task-photos"
	BucketChatPhotos = "chat-photos"
)

var (
	ErrUnknownBucket    = errors.New("unknown bucket")
	ErrInvalidPath      = errors.New("invalid object path")
	ErrObjectNotFound   = errors.New("object not found")
	ErrInvalidSignature = errors.New("invalid or expired signature")
)

type objectClaims struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// LocalStore keeps objects on disk under root/<bucket>/<path>. Public buckets
// are readable by anyone; private buckets only through signed URLs.
type LocalStore struct {
	root    string
	baseURL string
	secret  []byte
	buckets map[string]bool // bucket -> public
}

func NewLocalStore(root, baseURL, secret string) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		buckets: map[string]bool{
			BucketTaskPhotos: true,
			BucketChatPhotos: false,
		},
	}
}

func (s *LocalStore) IsPublic(bucket string) bool {
	return s.buckets[bucket]
}

func (s *LocalStore) resolve(bucket, objectPath string) (string, error) {
	if _, ok := s.buckets[bucket]; !ok {
		return "", ErrUnknownBucket
	}
	objectPath = strings.TrimPrefix(objectPath, "/")
	if objectPath == "" || strings.Contains(objectPath, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(objectPath)
	if clean != objectPath || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

// Put writes body to bucket/objectPath, replacing any existing object, and
// returns the stored path.
func (s *LocalStore) Put(ctx context.Context, bucket, objectPath string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}
	return strings.TrimPrefix(objectPath, "/"), nil
}

func (s *LocalStore) Open(bucket, objectPath string) (*os.File, error) {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/api/v1/storage/public/%s/%s", s.baseURL, bucket, escapePath(objectPath))
}

// SignedURL grants read access to one object until ttl elapses.
func (s *LocalStore) SignedURL(bucket, objectPath string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(bucket, objectPath); err != nil {
		return "", err
	}
	objectPath = strings.TrimPrefix(objectPath, "/")
	now := time.Now()
	claims := objectClaims{
		Bucket: bucket,
		Path:   objectPath,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/storage/signed/%s/%s?token=%s",
		s.baseURL, bucket, escapePath(objectPath), url.QueryEscape(token)), nil
}

// VerifySignature checks that token was issued for exactly bucket/objectPath
// and has not expired.
func (s *LocalStore) VerifySignature(bucket, objectPath, token string) error {
	var claims objectClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidSignature
	}
	if claims.Bucket != bucket || claims.Path != strings.TrimPrefix(objectPath, "/") {
		return ErrInvalidSignature
	}
	return nil
}

func escapePath(objectPath string) string {
	parts := strings.Split(strings.TrimPrefix(objectPath, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
