package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"trackify/internal/cache"
	"trackify/internal/core"
	"trackify/internal/storage"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// CredentialConfig tunes password hashing and profile caching.
type CredentialConfig struct {
	BcryptCost       int
	ProfileCacheSize int
	ProfileCacheTTL  time.Duration
}

// DefaultCredentialConfig returns sensible defaults
func DefaultCredentialConfig() CredentialConfig {
	return CredentialConfig{
		BcryptCost:       bcrypt.DefaultCost,
		ProfileCacheSize: 256,
		ProfileCacheTTL:  15 * time.Minute,
	}
}

// CredentialStore registers users and verifies their passwords. Passwords are
// stored as bcrypt hashes only.
type CredentialStore struct {
	users    UserRepository
	notifier Notifier
	profiles *cache.LRUCache[core.User]
	cost     int
}

func NewCredentialStore(users UserRepository, notifier Notifier, cfg CredentialConfig) *CredentialStore {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &CredentialStore{
		users:    users,
		notifier: notifier,
		profiles: cache.NewLRUCache[core.User](cfg.ProfileCacheSize, cfg.ProfileCacheTTL),
		cost:     cfg.BcryptCost,
	}
}

// ProfileCache exposes the profile cache for lifecycle management.
func (s *CredentialStore) ProfileCache() *cache.LRUCache[core.User] {
	return s.profiles
}

// Register creates a user. The email is normalized before the duplicate check
// and the insert, so addresses differing only in case collide.
func (s *CredentialStore) Register(ctx context.Context, name, email, password string) error {
	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" || len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be 1 to %d bytes", core.ErrInvalidPassword, maxPasswordBytes)
	}

	exists, err := s.users.UserExists(ctx, email)
	if err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}
	if exists {
		return fmt.Errorf("register %s: %w", email, core.ErrDuplicateEmail)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w: %w", core.ErrInvalidPassword, err)
	}

	// A concurrent registration can still win between the check and the
	// insert; the primary key then reports ErrDuplicateEmail.
	if err := s.users.CreateUser(ctx, storage.UserRecord{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}); err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}

	slog.InfoContext(ctx, "User registered", "email", email)
	return nil
}

// Verify reports whether password matches the stored hash for email. Unknown
// emails and wrong passwords both yield false without an error.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (bool, error) {
	email = core.NormalizeEmail(email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", email, err)
	}
	return matchPassword(u.PasswordHash, password)
}

// Login verifies the credentials, returns the profile and publishes a welcome
// event. A failed publish does not fail the login.
func (s *CredentialStore) Login(ctx context.Context, email, password string) (core.User, error) {
	ok, err := s.Verify(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	if !ok {
		slog.WarnContext(ctx, "Login rejected", "email", core.NormalizeEmail(email))
		return core.User{}, core.ErrInvalidCredentials
	}

	u, err := s.Lookup(ctx, email)
	if err != nil {
		return core.User{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.PublishWelcome(ctx, u.Email, u.Name); err != nil {
			slog.ErrorContext(ctx, "Failed to publish welcome event", "email", u.Email, "error", err)
		}
	}
	return u, nil
}

// Lookup returns the public profile of email. Users never change after
// registration, so found profiles are cached.
func (s *CredentialStore) Lookup(ctx context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if u, ok := s.profiles.Get(email); ok {
		return u, nil
	}

	rec, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("lookup %s: %w", email, err)
	}
	u := core.User{Email: rec.Email, Name: rec.Name}
	s.profiles.Set(email, u)
	return u, nil
}

// matchPassword compares against a bcrypt hash, or against the unsalted
// SHA-256 hex digest found in databases created by earlier releases.
func matchPassword(stored, password string) (bool, error) {
	if isLegacyDigest(stored) {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(stored))) == 1, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w: %w", core.ErrParseFault, err)
	}
}

func isLegacyDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
