package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/pkg/config"
)

var (
	jwtSigningMethod = jwt.SigningMethodHS256

	errSecretRequired = errors.New("jwt secret is required")
	errIssuerRequired = errors.New("jwt issuer is required")
)

// hmacKeyFunc rejects any token whose header names a different
// algorithm before the signature is checked.
func hmacKeyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}

// MintAccessToken issues a signed JWT carrying the user id, role and a
// jti that anchors the token to its Redis session.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errSecretRequired
	case cfg.Issuer == "":
		return "", errIssuerRequired
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errSecretRequired
	}

	claims := &AccessTokenClaims{}
	if _, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		hmacKeyFunc(cfg.Secret),
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseAccessTokenAllowExpired verifies the signature but skips claim
// validation. Refresh needs the jti out of an expired token to find
// the session it rotates.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errSecretRequired
	}

	parser := jwt.NewParser(
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, hmacKeyFunc(cfg.Secret)); err != nil {
		return nil, err
	}
	return claims, nil
}
