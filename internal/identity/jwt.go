package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionHeader = "X-Session-Token"

var ErrInvalidToken = errors.New("invalid bearer token")

// Provider resolves the current identity from a request. A valid bearer
// token wins; otherwise the caller is anonymous, scoped by its session
// token header (minted here if the client did not send one).
type Provider struct {
	secret []byte
}

func NewProvider(secret string) *Provider {
	return &Provider{secret: []byte(secret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (p *Provider) FromRequest(r *http.Request) (Identity, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(auth, "Bearer ") {
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		return p.Parse(raw)
	}

	token := strings.TrimSpace(r.Header.Get(SessionHeader))
	if token == "" {
		token = uuid.NewString()
	}
	return Identity{Anonymous: true, SessionToken: token}, nil
}

func (p *Provider) Parse(raw string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{CustomerID: c.Subject, Role: c.Role}, nil
}

// Sign issues a token for a customer; used by tools and tests, the real
// identity provider lives outside this core.
func (p *Provider) Sign(customerID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: customerID},
	})
	return token.SignedString(p.secret)
}
