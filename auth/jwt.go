package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ErrNoParticipant is returned when a valid token carries no participant id.
var ErrNoParticipant = errors.New("token has no participant id")

// Verifier validates participant tokens against a JWKS endpoint.
type Verifier struct {
	issuer  string
	keyfunc jwt.Keyfunc
	methods []string
}

// NewVerifier builds a Verifier for baseURL, whose JWKS lives at
// <baseURL>/.well-known/jwks.json. If baseURL is empty it returns (nil, nil).
func NewVerifier(baseURL string) (*Verifier, error) {
	if baseURL == "" {
		return nil, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid auth base URL %q", baseURL)
	}

	jwks, err := keyfunc.NewDefault([]string{strings.TrimRight(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load JWKS: %w", err)
	}
	return newVerifier(u.Scheme+"://"+u.Host, jwks.Keyfunc), nil
}

func newVerifier(issuer string, kf jwt.Keyfunc) *Verifier {
	return &Verifier{
		issuer:  issuer,
		keyfunc: kf,
		methods: []string{"EdDSA", "RS256", "ES256"},
	}
}

// Validate parses and verifies tokenString and returns its claims.
func (v *Verifier) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ParticipantFromToken validates the token and returns the participant id it carries.
func (v *Verifier) ParticipantFromToken(tokenString string) (string, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return "", err
	}
	id := ParticipantIDFromClaims(claims)
	if id == "" {
		return "", ErrNoParticipant
	}
	return id, nil
}

// ParticipantIDFromClaims returns the participant id from claims ("sub" or "id").
func ParticipantIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header value.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}
