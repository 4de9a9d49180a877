package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"tribeboard/internal/database"
	"tribeboard/internal/models"
	"tribeboard/internal/repository"
	"tribeboard/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrMissingToken    = errors.New("an identity token or authorization code is required")
)

const defaultDisplayName = "TribeBoard Member"

// AppleSignIn is what the app posts after Sign in with Apple
type AppleSignIn struct {
	IdentityToken     string
	AuthorizationCode string
	DisplayName       string
}

// AuthService handles Apple sign-in, sessions and profiles
type AuthService struct {
	db              *database.DB
	apple           *AppleVerifier
	hashKey         []byte
	sessionDuration time.Duration
	logger          *zap.Logger
}

// NewAuthService creates a new auth service. hashKey keys the BLAKE2b hash of
// Apple subjects and may be at most 64 bytes.
func NewAuthService(db *database.DB, apple *AppleVerifier, hashKey string, sessionDuration time.Duration, logger *zap.Logger) (*AuthService, error) {
	if _, err := blake2b.New256([]byte(hashKey)); err != nil {
		return nil, fmt.Errorf("invalid Apple hash key: %w", err)
	}
	return &AuthService{
		db:              db,
		apple:           apple,
		hashKey:         []byte(hashKey),
		sessionDuration: sessionDuration,
		logger:          logger.Named("auth"),
	}, nil
}

// HashAppleUserID derives the stored identifier for an Apple subject
func (s *AuthService) HashAppleUserID(subject string) string {
	h, _ := blake2b.New256(s.hashKey)
	h.Write([]byte(subject))
	return hex.EncodeToString(h.Sum(nil))
}

// SignInWithApple verifies the Apple credential, finds or creates the profile
// and opens a session.
func (s *AuthService) SignInWithApple(ctx context.Context, req AppleSignIn) (*models.Session, *models.UserProfile, error) {
	idToken := strings.TrimSpace(req.IdentityToken)
	if idToken == "" {
		if req.AuthorizationCode == "" {
			return nil, nil, ErrMissingToken
		}
		var err error
		idToken, err = s.apple.ExchangeCode(ctx, req.AuthorizationCode)
		if err != nil {
			return nil, nil, err
		}
	}

	identity, err := s.apple.Verify(ctx, idToken)
	if err != nil {
		return nil, nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName != "" {
		if err := validation.ValidateDisplayName(displayName); err != nil {
			return nil, nil, err
		}
	}

	hash := s.HashAppleUserID(identity.Subject)
	var profile *models.UserProfile
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		profiles := repository.NewProfileRepository(tx)
		var err error
		profile, err = profiles.GetByAppleUserIDHash(ctx, hash)
		if err != nil || profile != nil {
			return err
		}

		profile = models.NewUserProfile(uuid.NewString(), nameFor(displayName, identity.Email), hash)
		if err := profiles.Create(ctx, profile); err != nil {
			return err
		}
		s.logger.Info("profile created", zap.String("user_id", profile.ID))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}

	session, err := repository.NewSessionRepository(s.db).Create(ctx, uuid.NewString(), profile.ID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, profile, nil
}

func nameFor(displayName, email string) string {
	if displayName != "" {
		return displayName
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" && validation.ValidateDisplayName(local) == nil {
		return local
	}
	return defaultDisplayName
}

// ValidateSession checks if a session is valid and returns the signed-in profile
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	sessions := repository.NewSessionRepository(s.db)
	session, err := sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = sessions.Delete(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	profile, err := repository.NewProfileRepository(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionNotFound
	}
	return profile, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := repository.NewSessionRepository(s.db).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := repository.NewSessionRepository(s.db).DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

// GetProfile retrieves a profile by ID
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := repository.NewProfileRepository(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// UpdateProfile changes the display name and avatar and marks the profile for sync
func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName string, avatarURL *string) (*models.UserProfile, error) {
	displayName = strings.TrimSpace(displayName)
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if avatarURL != nil && strings.TrimSpace(*avatarURL) == "" {
		avatarURL = nil
	}

	var profile *models.UserProfile
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		profiles := repository.NewProfileRepository(tx)
		var err error
		profile, err = profiles.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrProfileNotFound
		}

		profile.DisplayName = displayName
		profile.AvatarURL = avatarURL
		profile.Touch()
		return profiles.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
