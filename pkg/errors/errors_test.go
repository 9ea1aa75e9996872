package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		wantType ErrorType
	}{
		{200, ""},
		{204, ""},
		{429, ErrorTypeTransient},
		{500, ErrorTypeTransient},
		{502, ErrorTypeTransient},
		{503, ErrorTypeTransient},
		{504, ErrorTypeTransient},
		{599, ErrorTypeTransient},
		{400, ErrorTypeFatal},
		{401, ErrorTypeFatal},
		{403, ErrorTypeFatal},
		{404, ErrorTypeFatal},
		{410, ErrorTypeFatal},
	}

	for _, test := range tests {
		err := ClassifyStatusCode(test.code)
		if test.wantType == "" {
			if err != nil {
				t.Errorf("status %d: expected nil, got %v", test.code, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("status %d: expected %s error, got nil", test.code, test.wantType)
			continue
		}
		if err.Type != test.wantType {
			t.Errorf("status %d: expected type %s, got %s", test.code, test.wantType, err.Type)
		}
		if err.Code != test.code {
			t.Errorf("status %d: expected code carried through, got %d", test.code, err.Code)
		}
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		err      error
		wantType ErrorType
	}{
		{errors.New("read tcp 10.0.0.1:443: connection reset by peer"), ErrorTypeTransient},
		{errors.New("net/http: TLS handshake timeout"), ErrorTypeTransient},
		{errors.New("unexpected EOF"), ErrorTypeTransient},
		{errors.New("http: unsupported protocol scheme \"\""), ErrorTypeFatal},
		{errors.New("something never seen before"), ErrorTypeTransient},
	}

	for _, test := range tests {
		got := ClassifyNetworkError(test.err)
		if got.Type != test.wantType {
			t.Errorf("%q: expected %s, got %s", test.err, test.wantType, got.Type)
		}
	}

	if ClassifyNetworkError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestIsConnectionReset(t *testing.T) {
	if !IsConnectionReset(errors.New("read: connection reset by peer")) {
		t.Error("expected reset detection for reset text")
	}
	if !IsConnectionReset(fmt.Errorf("wrapped: %w", errors.New("ECONNRESET"))) {
		t.Error("expected reset detection for ECONNRESET")
	}
	if IsConnectionReset(errors.New("request timeout")) {
		t.Error("did not expect reset detection for timeout")
	}
	if IsConnectionReset(nil) {
		t.Error("did not expect reset detection for nil")
	}
}

func TestTypeOfUnwraps(t *testing.T) {
	inner := Transient(503, "busy")
	wrapped := fmt.Errorf("fetch page 3: %w", inner)

	if TypeOf(wrapped) != ErrorTypeTransient {
		t.Errorf("expected transient through wrapping, got %s", TypeOf(wrapped))
	}
	if !IsTransient(wrapped) {
		t.Error("IsTransient should see through wrapping")
	}
	if TypeOf(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("plain errors should classify unknown")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrorTypeTransient) {
		t.Error("transient must be retryable")
	}
	for _, et := range []ErrorType{ErrorTypeFatal, ErrorTypeDataMissing, ErrorTypeUnitExhausted, ErrorTypeInterrupted, ErrorTypeUnknown} {
		if IsRetryable(et) {
			t.Errorf("%s must not be retryable", et)
		}
	}
}
