package local

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/playersync/internal/model"
)

// Token audiences
const (
	audienceGrant  = "grant"
	audienceAccess = "access"
)

// grantTTL bounds how long a completed handshake can wait for its exchange
const grantTTL = 2 * time.Minute

// issue signs an HS256 token for playerID
func (p *Provider) issue(playerID model.PlayerID, audience string, ttl time.Duration) (string, time.Time, error) {
	now := p.clock.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    p.cfg.Issuer,
		Subject:   string(playerID),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", audience, err)
	}
	return signed, expiresAt, nil
}

// verify checks a token's signature, issuer, audience and expiry and
// returns its subject
func (p *Provider) verify(token, audience string) (model.PlayerID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(p.cfg.TokenSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(p.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrAuthentication, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: invalid %s token", model.ErrAuthentication, audience)
	}
	return model.PlayerID(claims.Subject), nil
}

// VerifyAccessToken returns the player an access token was issued to
func (p *Provider) VerifyAccessToken(token string) (model.PlayerID, error) {
	return p.verify(token, audienceAccess)
}
