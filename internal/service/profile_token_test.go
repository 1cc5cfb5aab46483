package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"小明", "ab", "user_01", "张三abc", strings.Repeat("a", 20)}
	for _, name := range valid {
		assert.NoError(t, service.ValidateUsername(name), name)
	}

	invalid := []string{"a", "", strings.Repeat("字", 21), "has space", "emoji🙂", "dash-name", "名!"}
	for _, name := range invalid {
		var v *domain.ErrValidation
		assert.ErrorAs(t, service.ValidateUsername(name), &v, name)
	}
}

func TestProfileService_UpdateUsernameTrims(t *testing.T) {
	store := &mockProfileStore{}
	svc := service.NewProfileService(store, zap.NewNop())

	p, err := svc.UpdateUsername(context.Background(), "u1", "  小明  ")
	require.NoError(t, err)
	assert.Equal(t, "小明", p.Username)
	assert.Equal(t, "小明", store.updated)

	_, err = svc.UpdateUsername(context.Background(), "u1", " x ")
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}

func TestProfileService_GetProfile(t *testing.T) {
	store := &mockProfileStore{profile: &domain.Profile{UserID: "u1", Email: "a@b.c"}}
	svc := service.NewProfileService(store, zap.NewNop())

	p, err := svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", p.Email)

	store.err = &domain.ErrNotFound{Resource: "user", ID: "u1"}
	_, err = svc.GetProfile(context.Background(), "u1")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := service.NewTokenService("super-secret")

	token, err := svc.Issue("u1", "a@b.c", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := service.NewTokenService("super-secret")

	sign := func(key any, claims jwt.Claims, method jwt.SigningMethod) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	base := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   "u1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongAud := base()
	wrongAud.Audience = jwt.ClaimStrings{"anon"}
	noExp := base()
	noExp.ExpiresAt = nil
	noSub := base()
	noSub.Subject = ""

	tests := map[string]string{
		"empty":           "",
		"garbage":         "not.a.jwt",
		"wrong secret":    sign([]byte("other-secret"), base(), jwt.SigningMethodHS256),
		"expired":         sign([]byte("super-secret"), expired, jwt.SigningMethodHS256),
		"wrong audience":  sign([]byte("super-secret"), wrongAud, jwt.SigningMethodHS256),
		"no expiry":       sign([]byte("super-secret"), noExp, jwt.SigningMethodHS256),
		"no subject":      sign([]byte("super-secret"), noSub, jwt.SigningMethodHS256),
		"unsigned (none)": sign(jwt.UnsafeAllowNoneSignatureType, base(), jwt.SigningMethodNone),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			var u *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &u)
		})
	}
}

func TestTokenService_IssueRequiresUser(t *testing.T) {
	_, err := service.NewTokenService("s").Issue("", "", time.Hour)
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}
