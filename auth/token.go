package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pipelineatlas/atlas-api/models"
)

// Claims is the token payload. Field names follow the registered JWT claim
// names so issued tokens stay readable by standard tooling.
type Claims struct {
	Sub      string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IssuedAt int64  `json:"iat"`
	Expires  int64  `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Codec issues and verifies HMAC-SHA256 signed tokens. Verification checks
// the signature before touching the payload so a forged token never reaches
// the JSON decoder, and the digest compare is constant-time.
//
// The token format is the standard three-segment base64url layout, but the
// codec is deliberately hand-rolled: general JWT libraries decode the header
// (and claims) before the signature check runs, which this service's
// verification contract forbids.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a token codec with the given signing secret and default
// token lifetime.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the codec's time source. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// TTL returns the default token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a signed token for the user with the codec's default TTL
func (c *Codec) Issue(user *models.User) (string, error) {
	return c.IssueWithTTL(user, c.ttl)
}

// IssueWithTTL creates a signed token for the user with an explicit TTL
func (c *Codec) IssueWithTTL(user *models.User, ttl time.Duration) (string, error) {
	now := c.now().Unix()

	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(Claims{
		Sub:      user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		IssuedAt: now,
		Expires:  now + int64(ttl/time.Second),
	})
	if err != nil {
		return "", err
	}

	signingInput := b64encode(headerJSON) + "." + b64encode(payloadJSON)
	return signingInput + "." + c.sign(signingInput), nil
}

// Verify checks a token and returns the user it identifies. The order of
// checks is part of the contract: segment count, then signature, then
// payload decode, then expiry.
func (c *Codec) Verify(token string) (*models.User, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(c.sign(signingInput)), []byte(parts[2])) {
		return nil, ErrBadSignature
	}

	payloadJSON, err := b64decode(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrMalformedToken
	}

	if claims.Expires < c.now().Unix() {
		return nil, ErrTokenExpired
	}

	role := models.Role(claims.Role)
	if role == "" {
		role = models.RoleViewer
	}
	return &models.User{
		ID:       claims.Sub,
		Username: claims.Username,
		Role:     role,
	}, nil
}

func (c *Codec) sign(signingInput string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return b64encode(mac.Sum(nil))
}

func b64encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func b64decode(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(data)
}
