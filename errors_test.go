package tpmsp

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Register", "notification", CodeInvalidParameter, "duplicate bit")

	if err.Op != "Register" {
		t.Errorf("Expected Op=Register, got %s", err.Op)
	}
	if err.Code != CodeInvalidParameter {
		t.Errorf("Expected Code=CodeInvalidParameter, got %s", err.Code)
	}

	expected := "Register[notification]: duplicate bit"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestLocalityError(t *testing.T) {
	err := NewLocalityError("Start", "tpm", 2, CodeAccessDenied, "locality not open")

	if err.Locality != 2 {
		t.Errorf("Expected Locality=2, got %d", err.Locality)
	}

	expected := "Start[tpm locality=2]: locality not open"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("register read failed")
	err := WrapError("CopyCommandData", inner)

	if err.Code != CodeBackendDeviceError {
		t.Errorf("Expected Code=CodeBackendDeviceError, got %s", err.Code)
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to satisfy errors.Is for the inner error")
	}
}

func TestWrapErrorPreservesOurOwnCode(t *testing.T) {
	inner := NewLocalityError("CmdReady", "tpm", 1, CodeBackendTimeout, "poll timed out")
	err := WrapError("Start", inner)

	if err.Code != CodeBackendTimeout {
		t.Errorf("Expected wrapping to preserve Code=CodeBackendTimeout, got %s", err.Code)
	}
	if err.Locality != 1 {
		t.Errorf("Expected wrapping to preserve Locality=1, got %d", err.Locality)
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("Start", "tpm", CodeBackendTimeout, "register poll timed out")

	if !IsCode(err, CodeBackendTimeout) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, CodeInvalidParameter) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, CodeBackendTimeout) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestIsCodeThroughWrap(t *testing.T) {
	err := error(NewError("Start", "tpm", CodeBackendTimeout, "timed out"))
	wrapped := fmt.Errorf("context: %w", err)

	if !IsCode(wrapped, CodeBackendTimeout) {
		t.Error("IsCode should see through fmt.Errorf wrapping via errors.As")
	}
}
