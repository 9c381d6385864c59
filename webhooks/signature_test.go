package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func githubSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyGitHub(t *testing.T) {
	logger := zap.NewNop()
	body := []byte(`{"ref":"refs/heads/main"}`)

	t.Run("valid signature passes", func(t *testing.T) {
		v := NewVerifier("s3cret", "", logger)
		err := v.VerifyGitHub(body, githubSignature("s3cret", body))
		assert.NoError(t, err)
	})

	t.Run("single flipped body byte fails", func(t *testing.T) {
		v := NewVerifier("s3cret", "", logger)
		sig := githubSignature("s3cret", body)

		mutated := append([]byte(nil), body...)
		mutated[0] ^= 1
		err := v.VerifyGitHub(mutated, sig)
		assert.ErrorIs(t, err, ErrSignatureVerification)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		v := NewVerifier("s3cret", "", logger)
		err := v.VerifyGitHub(body, githubSignature("other", body))
		assert.ErrorIs(t, err, ErrSignatureVerification)
	})

	t.Run("missing sha256 prefix fails", func(t *testing.T) {
		v := NewVerifier("s3cret", "", logger)
		raw := githubSignature("s3cret", body)[len("sha256="):]
		err := v.VerifyGitHub(body, raw)
		assert.ErrorIs(t, err, ErrSignatureVerification)
	})

	t.Run("empty header fails", func(t *testing.T) {
		v := NewVerifier("s3cret", "", logger)
		err := v.VerifyGitHub(body, "")
		assert.ErrorIs(t, err, ErrSignatureVerification)
	})

	t.Run("empty secret skips verification", func(t *testing.T) {
		v := NewVerifier("", "", logger)
		err := v.VerifyGitHub(body, "garbage")
		assert.NoError(t, err)
	})
}

func TestVerifyGitLab(t *testing.T) {
	logger := zap.NewNop()

	t.Run("matching token passes", func(t *testing.T) {
		v := NewVerifier("", "gl-secret", logger)
		assert.NoError(t, v.VerifyGitLab("gl-secret"))
	})

	t.Run("wrong token fails", func(t *testing.T) {
		v := NewVerifier("", "gl-secret", logger)
		assert.ErrorIs(t, v.VerifyGitLab("wrong"), ErrSignatureVerification)
	})

	t.Run("empty token fails", func(t *testing.T) {
		v := NewVerifier("", "gl-secret", logger)
		assert.ErrorIs(t, v.VerifyGitLab(""), ErrSignatureVerification)
	})

	t.Run("empty secret skips verification", func(t *testing.T) {
		v := NewVerifier("", "", logger)
		assert.NoError(t, v.VerifyGitLab("anything"))
	})
}
