package server

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Slack request signing headers
const (
	SignatureHeader = "X-Slack-Signature"
	TimestampHeader = "X-Slack-Request-Timestamp"
	SignatureScheme = "v0"
)

// VerifySignature checks the Slack v0 signature of a request body. Requests
// older than five minutes are rejected.
func VerifySignature(header http.Header, body []byte, secret string) error {
	if secret == "" {
		return fmt.Errorf("signing secret not configured")
	}

	verifier, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("invalid signature headers: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("hashing body: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}
