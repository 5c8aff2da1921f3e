package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/mercado-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errMissingSubject = errors.New("token subject is required")

// Verifier validates identity provider session tokens. RS256 is used when a
// public key is configured, HS256 with the shared secret otherwise.
type Verifier struct {
	method    jwt.SigningMethod
	publicKey *rsa.PublicKey
	secret    []byte
	issuer    string
	leeway    time.Duration
}

// NewVerifier builds a Verifier from the identity configuration.
func NewVerifier(cfg config.IdentityConfig) (*Verifier, error) {
	v := &Verifier{
		issuer: strings.TrimSpace(cfg.Issuer),
		leeway: cfg.ClockSkew,
	}
	if pemData := strings.TrimSpace(cfg.PublicKeyPEM); pemData != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
		if err != nil {
			return nil, fmt.Errorf("parsing identity public key: %w", err)
		}
		v.method = jwt.SigningMethodRS256
		v.publicKey = key
		return v, nil
	}
	if cfg.SharedSecret == "" {
		return nil, fmt.Errorf("identity public key or shared secret is required")
	}
	v.method = jwt.SigningMethodHS256
	v.secret = []byte(cfg.SharedSecret)
	return v, nil
}

// Verify validates signature, expiry and issuer and returns the typed claims.
func (v *Verifier) Verify(tokenString string) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.leeway))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != v.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
	}
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.secret, nil
}

// MintIdentityToken issues an HS256 token shaped like the identity provider's.
// Used by local development and tests.
func MintIdentityToken(cfg config.IdentityConfig, now time.Time, ttl time.Duration, payload IdentityPayload) (string, error) {
	if cfg.SharedSecret == "" {
		return "", fmt.Errorf("identity shared secret is required")
	}
	if strings.TrimSpace(payload.ExternalID) == "" {
		return "", errMissingSubject
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	claims := IdentityClaims{
		Email:          payload.Email,
		EmailAddresses: payload.EmailAddresses,
		Name:           payload.Name,
		Username:       payload.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.ExternalID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SharedSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
