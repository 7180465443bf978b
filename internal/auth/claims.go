package auth

import (
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/banner-pricing/internal/common"
)

// RoleAdmin is the role claim value required on admin endpoints.
const RoleAdmin = "admin"

const roleClaim = "role"

// adminClaims is what an admin token minted by pricectl must carry: our
// issuer and audience, a subject, an expiry and the admin role.
type adminClaims struct {
	issuer   string
	audience string
	skew     time.Duration
}

func (c adminClaims) check(tok jwt.Token, now time.Time) error {
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if c.skew > 0 {
		options = append(options, jwt.WithAcceptableSkew(c.skew))
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		options = append(options, jwt.WithAudience(c.audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return unauthorized(err)
	}
	if role, _ := tok.Get(roleClaim); role != RoleAdmin {
		return common.NewAppError("FORBIDDEN", "admin role required", http.StatusForbidden, nil)
	}
	return nil
}

func unauthorized(err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, err)
}
