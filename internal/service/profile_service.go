package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var profileTracer = otel.Tracer("service/profile")

const (
	minUsernameLen = 2
	maxUsernameLen = 20
)

// Chinese characters, ASCII letters, digits and underscore.
var usernamePattern = regexp.MustCompile(`^[\p{Han}a-zA-Z0-9_]+$`)

type ProfileService struct {
	store  port.ProfileStore
	logger *zap.Logger
}

func NewProfileService(store port.ProfileStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.GetProfile(ctx, userID)
}

// UpdateUsername validates and stores a new display name.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID, username string) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.UpdateUsername")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	p, err := s.store.UpdateUsername(ctx, userID, username)
	if err != nil {
		s.logger.Error("update username failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("update username: %w", err)
	}
	return p, nil
}

// ValidateUsername checks length (in characters) and the allowed alphabet.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return &domain.ErrValidation{
			Field:   "username",
			Message: fmt.Sprintf("must be %d to %d characters", minUsernameLen, maxUsernameLen),
		}
	}
	if !usernamePattern.MatchString(username) {
		return &domain.ErrValidation{
			Field:   "username",
			Message: "may only contain Chinese characters, letters, digits and underscores",
		}
	}
	return nil
}
