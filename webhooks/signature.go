package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Signature header names used by the supported platforms.
const (
	GitHubSignatureHeader = "X-Hub-Signature-256"
	GitLabTokenHeader     = "X-Gitlab-Token"

	githubSignaturePrefix = "sha256="
)

// ErrSignatureVerification indicates an inbound webhook failed signature or
// token verification. Surfaced to the caller as unauthorized; the payload is
// never parsed or persisted after this failure.
var ErrSignatureVerification = errors.New("webhook signature verification failed")

// Verifier checks inbound webhook authenticity. Each platform uses its own
// strategy: GitHub signs the raw body with HMAC-SHA256, GitLab sends the
// shared secret verbatim in a header.
//
// An empty configured secret disables verification for that platform. This
// is a deliberate dev/CI bootstrap escape hatch; every skipped verification
// is logged at Warn because it bypasses a security control.
type Verifier struct {
	githubSecret string
	gitlabSecret string
	logger       *zap.Logger
}

// NewVerifier creates a webhook verifier with per-platform secrets
func NewVerifier(githubSecret, gitlabSecret string, logger *zap.Logger) *Verifier {
	return &Verifier{
		githubSecret: githubSecret,
		gitlabSecret: gitlabSecret,
		logger:       logger,
	}
}

// VerifyGitHub checks the X-Hub-Signature-256 header against the raw request
// body. The header must carry "sha256=" followed by the hex HMAC-SHA256 of
// the body under the configured secret.
func (v *Verifier) VerifyGitHub(body []byte, signatureHeader string) error {
	if v.githubSecret == "" {
		v.logger.Warn("github webhook signature verification skipped: no secret configured")
		return nil
	}

	if !strings.HasPrefix(signatureHeader, githubSignaturePrefix) {
		return ErrSignatureVerification
	}
	got := strings.TrimPrefix(signatureHeader, githubSignaturePrefix)

	mac := hmac.New(sha256.New, []byte(v.githubSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrSignatureVerification
	}
	return nil
}

// VerifyGitLab checks the X-Gitlab-Token header against the configured
// shared secret.
func (v *Verifier) VerifyGitLab(tokenHeader string) error {
	if v.gitlabSecret == "" {
		v.logger.Warn("gitlab webhook token verification skipped: no secret configured")
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(tokenHeader), []byte(v.gitlabSecret)) != 1 {
		return ErrSignatureVerification
	}
	return nil
}
