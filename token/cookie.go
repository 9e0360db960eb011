package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
)

const cookieIssuer = "go-auth-login"

// SessionClaims are carried by the session cookie. The cookie only names the
// session, all login state lives server side.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// CookieSigner encodes session ids into tamper proof cookie values.
type CookieSigner struct {
	signer Signer
	maxAge time.Duration
	now    func() time.Time
}

func NewCookieSigner(signer Signer, maxAge time.Duration) *CookieSigner {
	return &CookieSigner{signer: signer, maxAge: maxAge, now: time.Now}
}

// MaxAge is the lifetime of an encoded cookie.
func (c *CookieSigner) MaxAge() time.Duration {
	return c.maxAge
}

// Encode returns the signed cookie value for sessionID.
func (c *CookieSigner) Encode(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}
	now := c.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	}
	return c.signer.Sign(claims)
}

// Decode verifies value and returns the session id it carries.
func (c *CookieSigner) Decode(value string) (string, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(value, claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", autherrors.Wrapf(autherrors.ErrSessionExpired, "cookie")
		}
		return "", autherrors.Wrapf(autherrors.ErrInvalidCookie, "%v", err)
	}
	if claims.Subject == "" {
		return "", autherrors.ErrInvalidCookie
	}
	return claims.Subject, nil
}
