package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/common"
)

func TestAdminClaims(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	claims := adminClaims{issuer: "banner-pricing", audience: "banner-admin", skew: time.Second}

	token := func(build func(*jwt.Builder) *jwt.Builder) jwt.Token {
		b := jwt.NewBuilder().Issuer("banner-pricing").Audience([]string{"banner-admin"}).IssuedAt(now)
		tok, err := build(b).Build()
		require.NoError(t, err)
		return tok
	}
	full := func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("ops").Expiration(now.Add(time.Minute)).Claim(roleClaim, RoleAdmin)
	}

	cases := []struct {
		name   string
		token  jwt.Token
		status int
	}{
		{"valid", token(full), 0},
		{"issuer mismatch", token(func(b *jwt.Builder) *jwt.Builder { return full(b).Issuer("other") }), http.StatusUnauthorized},
		{"not yet valid", token(func(b *jwt.Builder) *jwt.Builder { return full(b).NotBefore(now.Add(5 * time.Minute)) }), http.StatusUnauthorized},
		{"no subject", token(func(b *jwt.Builder) *jwt.Builder {
			return b.Expiration(now.Add(time.Minute)).Claim(roleClaim, RoleAdmin)
		}), http.StatusUnauthorized},
		{"no expiry", token(func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("ops").Claim(roleClaim, RoleAdmin)
		}), http.StatusUnauthorized},
		{"no role", token(func(b *jwt.Builder) *jwt.Builder {
			return b.Subject("ops").Expiration(now.Add(time.Minute))
		}), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := claims.check(tc.token, now)
			if tc.status == 0 {
				require.NoError(t, err)
				return
			}
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, tc.status, appErr.HTTPStatus)
		})
	}
}
