package stripesvc

import (
	"fmt"
	"testing"
	"time"
)

func sigHeader(ts int64, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,%s=%s", ts, signingVersion, computeSignature(ts, payload, secret))
}

func TestVerifyPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	now := time.Now().Unix()

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid", sigHeader(now, payload, secret), nil},
		{"empty header", "", ErrInvalidSigHeader},
		{"garbage header", "not-a-header", ErrInvalidSigHeader},
		{"missing signature", fmt.Sprintf("t=%d", now), ErrInvalidSigHeader},
		{"bad timestamp", "t=abc,v1=deadbeef", ErrInvalidSigHeader},
		{"expired timestamp", sigHeader(now-int64((defaultTolerance+time.Minute).Seconds()), payload, secret), ErrTimestampExpired},
		{"wrong secret", sigHeader(now, payload, "whsec_other"), ErrNoValidSignature},
		{"tampered payload", sigHeader(now, []byte(`{"id":"evt_999"}`), secret), ErrNoValidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyPayload(payload, tt.header, secret); err != tt.wantErr {
				t.Errorf("expected %v; got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVerifyPayloadMultipleSignatures(t *testing.T) {
	payload := []byte(`{"id":"evt_123"}`)
	secret := "whsec_test"
	now := time.Now().Unix()

	// a rotated endpoint sends signatures for both the old and new secret
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		now, computeSignature(now, payload, "whsec_old"), computeSignature(now, payload, secret))
	if err := VerifyPayload(payload, header, secret); err != nil {
		t.Errorf("expected any matching signature to verify; got %v", err)
	}
}
