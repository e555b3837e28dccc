package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// SignTestRequest sets Slack signature headers for body on header, using the
// current time. Shared across test files.
func SignTestRequest(header http.Header, body []byte, secret string) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	header.Set(TimestampHeader, ts)
	header.Set(SignatureHeader, MakeTestSignature(body, secret, ts))
}

// MakeTestSignature computes the Slack v0 signature of body at timestamp ts.
func MakeTestSignature(body []byte, secret, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:", SignatureScheme, ts)
	mac.Write(body)
	return SignatureScheme + "=" + hex.EncodeToString(mac.Sum(nil))
}
