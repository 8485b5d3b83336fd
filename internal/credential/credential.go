// package credential implements the self-contained bearer credential shared by
// every listening-stats service.
//
// A credential is an HMAC-signed JWT embedding the Spotify user id and the
// delegated access token. Any service holding the signing secret can verify a
// credential without a shared session store.
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mvaldes/spotistats/internal/shared"
)

// TTL is the fixed credential lifetime. Expiry is always issuance + TTL.
const TTL = time.Hour

// Claims are the JWT claims carried by a credential.
type Claims struct {
	jwt.RegisteredClaims
	User        string `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Identity is the verified subject recovered from a credential.
type Identity struct {
	UserID      string
	AccessToken string
}

// Issuer mints signed credentials.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an Issuer. It fails closed when the secret is empty so a
// misconfigured service can never emit an unsigned or default-signed credential.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, shared.ErrMissingSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a credential for the given Spotify user id carrying the delegated
// access token, expiring [TTL] after issuance.
func (i *Issuer) Issue(userID, accessToken string) (string, error) {
	if userID == "" || accessToken == "" {
		return "", fmt.Errorf("%w: user id and access token are required", shared.ErrInvalidInput)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
		User:        userID,
		AccessToken: accessToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}

	return signed, nil
}

// Verifier validates inbound credentials. Verification is a pure function of
// the token and the secret; it consults no store and has no side effects.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier holding the same secret the issuer signs with.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, shared.ErrMissingSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify validates the signature and expiry of a credential and returns the
// embedded identity. Any failure, including expiry, maps to
// [shared.ErrInvalidCredential]; there is no partial trust.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", shared.ErrInvalidCredential)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, shared.ErrInvalidCredential
	}
	if claims.User == "" || claims.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing subject or access token", shared.ErrInvalidCredential)
	}

	return &Identity{UserID: claims.User, AccessToken: claims.AccessToken}, nil
}
