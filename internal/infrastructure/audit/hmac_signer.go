package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/credicefi/crediface/internal/domain/models"
)

// Signer computes a tamper-evident HMAC-SHA256 over an entry's assessment.
type Signer struct {
	secret []byte
}

// NewSigner returns nil for an empty secret, which disables signing.
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret)}
}

// Sign sets entry.Hash.
func (s *Signer) Sign(entry *models.AuditEntry) error {
	sum, err := s.sum(entry)
	if err != nil {
		return err
	}
	entry.WithHash(base64.StdEncoding.EncodeToString(sum))
	return nil
}

// Verify reports whether entry.Hash matches the entry's current contents.
func (s *Signer) Verify(entry *models.AuditEntry) bool {
	want, err := base64.StdEncoding.DecodeString(entry.Hash)
	if err != nil {
		return false
	}
	got, err := s.sum(entry)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func (s *Signer) sum(entry *models.AuditEntry) ([]byte, error) {
	payload, err := entry.SigningPayload()
	if err != nil {
		return nil, err
	}
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil), nil
}
