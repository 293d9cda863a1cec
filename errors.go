package tpmsp

import (
	"errors"
	"fmt"
)

// Code categorizes a failure the way §7 of the design groups them: a
// caller can errors.As into *Error and branch on Code without parsing Msg.
type Code string

const (
	CodeInvalidParameter   Code = "invalid parameter"
	CodeResourceExhausted  Code = "resource exhausted"
	CodeAccessDenied       Code = "access denied"
	CodeBackendTimeout     Code = "backend timeout"
	CodeBackendDeviceError Code = "backend device error"
	CodeNotSupported       Code = "not supported"
)

// Error is a structured failure carrying which service and, where
// applicable, which locality it happened in.
type Error struct {
	Op       string // e.g. "notif.Register", "tpm.Start"
	Service  string // "notification", "tpm", "test"
	Locality int    // -1 if not applicable
	Code     Code
	Msg      string
	Inner    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Locality >= 0 {
		return fmt.Sprintf("%s[%s locality=%d]: %s", e.Op, e.Service, e.Locality, msg)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Op, e.Service, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError builds a service-scoped error with no locality context.
func NewError(op, service string, code Code, msg string) *Error {
	return &Error{Op: op, Service: service, Locality: -1, Code: code, Msg: msg}
}

// NewLocalityError builds an error scoped to a particular CRB locality.
func NewLocalityError(op, service string, locality int, code Code, msg string) *Error {
	return &Error{Op: op, Service: service, Locality: locality, Code: code, Msg: msg}
}

// WrapError wraps inner under op, preserving Code/Service/Locality if inner
// is already one of ours.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Service: ie.Service, Locality: ie.Locality, Code: ie.Code, Msg: ie.Msg, Inner: ie.Inner}
	}
	return &Error{Op: op, Service: "unknown", Locality: -1, Code: CodeBackendDeviceError, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is, or wraps, an *Error with the given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
