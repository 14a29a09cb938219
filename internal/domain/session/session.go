// Package session issues and verifies signed tokens that pin a company name
// set to the criteria that produced it.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/criteria"
)

// Version is the only payload format this codec accepts.
const Version = 1

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = time.Hour

// Payload is the signed body of a session token.
type Payload struct {
	Version      int      `json:"v"`
	CompanyNames []string `json:"cnames"`
	CompanyHash  string   `json:"ch"`
	PeopleHash   string   `json:"ph"`
	IssuedAt     int64    `json:"iat"`
	ExpiresAt    int64    `json:"exp"`
	SearchID     string   `json:"sid"`
}

// Codec signs and verifies session tokens with a process-wide secret.
// It is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec. ttl <= 0 uses DefaultTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// TTL returns the token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue builds and signs a token for the given company snapshot. An empty
// searchID is generated from the issue time.
func (c *Codec) Issue(
	companyNames []string,
	company criteria.Company,
	people criteria.People,
	searchID string,
) (string, error) {
	now := c.now()
	if searchID == "" {
		searchID = fmt.Sprintf("search_%d", now.Unix())
	}

	payload := Payload{
		Version:      Version,
		CompanyNames: companyNames,
		CompanyHash:  company.Fingerprint(),
		PeopleHash:   people.Fingerprint(),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(c.ttl).Unix(),
		SearchID:     searchID,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal session payload: %w", err)
	}

	body := base64.RawURLEncoding.EncodeToString(raw)
	return body + "." + c.sign(body), nil
}

// Verify checks the signature, decodes the payload and checks expiry.
// Signature and format failures are ErrInvalidToken; a valid but stale
// token is ErrExpiredToken.
func (c *Codec) Verify(token string) (Payload, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return Payload{}, fmt.Errorf("%w: malformed", domain.ErrInvalidToken)
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: malformed signature", domain.ErrInvalidToken)
	}
	if !hmac.Equal(got, c.mac(body)) {
		return Payload{}, fmt.Errorf("%w: signature mismatch", domain.ErrInvalidToken)
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: malformed payload", domain.ErrInvalidToken)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: malformed payload", domain.ErrInvalidToken)
	}
	if p.Version != Version {
		return Payload{}, fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidToken, p.Version)
	}
	if len(p.CompanyNames) == 0 {
		return Payload{}, fmt.Errorf("%w: empty company set", domain.ErrInvalidToken)
	}
	if c.now().Unix() > p.ExpiresAt {
		return Payload{}, domain.ErrExpiredToken
	}
	return p, nil
}

// Matches reports whether the live criteria are the ones the token was
// issued for.
func (c *Codec) Matches(p Payload, company criteria.Company, people criteria.People) bool {
	return hmac.Equal([]byte(p.CompanyHash), []byte(company.Fingerprint())) &&
		hmac.Equal([]byte(p.PeopleHash), []byte(people.Fingerprint()))
}

func (c *Codec) sign(body string) string {
	return hex.EncodeToString(c.mac(body))
}

func (c *Codec) mac(body string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
