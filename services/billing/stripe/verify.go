// Package stripesvc implements the billing gateway on the Stripe HTTP API,
// including webhook signature verification, without the full stripe-go SDK.
package stripesvc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// defaultTolerance is how far a webhook timestamp may drift before the
	// payload is rejected as a possible replay.
	defaultTolerance = 5 * time.Minute
	signingVersion   = "v1"
)

var (
	ErrInvalidSigHeader = errors.New("invalid Stripe-Signature header")
	ErrNoValidSignature = errors.New("no valid webhook signature found")
	ErrTimestampExpired = errors.New("webhook timestamp outside tolerance")
)

// VerifyPayload checks the Stripe-Signature header against the raw webhook
// body. The body must be the exact bytes received; re-serialized JSON will
// not verify.
func VerifyPayload(payload []byte, sigHeader, secret string) error {
	return verifyPayload(payload, sigHeader, secret, defaultTolerance)
}

func verifyPayload(payload []byte, sigHeader, secret string, tolerance time.Duration) error {
	ts, sigs, err := parseSigHeader(sigHeader)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		diff := time.Since(time.Unix(ts, 0))
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			return ErrTimestampExpired
		}
	}

	expected := computeSignature(ts, payload, secret)
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrNoValidSignature
}

// parseSigHeader splits "t=<ts>,v1=<sig>[,v1=<sig>...]" into its parts.
func parseSigHeader(header string) (ts int64, sigs []string, err error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, ErrInvalidSigHeader
	}
	for _, pair := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			if ts, err = strconv.ParseInt(kv[1], 10, 64); err != nil {
				return 0, nil, ErrInvalidSigHeader
			}
		case signingVersion:
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, ErrInvalidSigHeader
	}
	return ts, sigs, nil
}

func computeSignature(ts int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d", ts)
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
