package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
)

var _ port.ProfileStore = (*Client)(nil)

// authUser is the subset of a GoTrue admin user we read.
type authUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u authUser) toProfile() *domain.Profile {
	p := &domain.Profile{UserID: u.ID, Email: u.Email}
	if v, ok := u.UserMetadata["username"].(string); ok {
		p.Username = v
	}
	if v, ok := u.UserMetadata["avatar_url"].(string); ok {
		p.AvatarURL = v
	}
	return p
}

func adminUserPath(userID string) string {
	return "auth/v1/admin/users/" + url.PathEscape(userID)
}

func decodeUser(body []byte, status int, userID string) (*domain.Profile, error) {
	if status == http.StatusNotFound {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "user", ID: userID})
	}
	var u authUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode user: %w", err))
	}
	if u.ID == "" {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "user", ID: userID})
	}
	return u.toProfile(), nil
}

// notFoundStatus turns a 404 statusError into (nil body, 404, nil) so the
// caller can map it to ErrNotFound.
func notFoundStatus(body []byte, status int, err error) ([]byte, int, error) {
	if status == http.StatusNotFound {
		return nil, status, nil
	}
	return body, status, err
}

// GetProfile reads the user's profile from auth user metadata.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var profile *domain.Profile
	err := c.call(ctx, "supabase/auth", func() error {
		body, status, err := notFoundStatus(c.doRequest(ctx, http.MethodGet, adminUserPath(userID), nil, ""))
		if err != nil {
			return err
		}
		profile, err = decodeUser(body, status, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateUsername stores username in user_metadata. GoTrue merges the
// metadata object, so other keys (avatar_url) are left alone.
func (c *Client) UpdateUsername(ctx context.Context, userID, username string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUsername")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var profile *domain.Profile
	err := c.call(ctx, "supabase/auth", func() error {
		payload, err := encodeJSON(map[string]any{
			"user_metadata": map[string]any{"username": username},
		})
		if err != nil {
			return err
		}
		body, status, err := notFoundStatus(c.doRequest(ctx, http.MethodPut, adminUserPath(userID), payload, ""))
		if err != nil {
			return err
		}
		profile, err = decodeUser(body, status, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
