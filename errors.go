// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tdmsync

import "github.com/pkg/errors"

// Kind classifies the fatal error conditions the core can raise. The core
// never swallows an error: every fallible operation surfaces one of these
// kinds, wrapped with call-site context, and leaves presentation to the
// caller.
type Kind int

const (
	// KindIO wraps an underlying ByteStream read/write/seek failure.
	KindIO Kind = iota
	// KindMalformedSignature covers magic mismatch, length mismatch or a
	// checksums array that isn't sorted ascending.
	KindMalformedSignature
	// KindPhfBuildExhausted means the perfect-hash build retried past its
	// attempt budget without finding an acyclic bipartite graph.
	KindPhfBuildExhausted
	// KindRangeMismatch means a Downloader wrote a different number of bytes
	// than the plan's ranges asked for.
	KindRangeMismatch
	// KindHTTPUnsupported means the server didn't advertise byte-range
	// support, or answered with a non-2xx status.
	KindHTTPUnsupported
	// KindInvariantViolated covers an assertion failure in construction or
	// verification of a signature, plan or perfect hash.
	KindInvariantViolated
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindMalformedSignature:
		return "MalformedSignature"
	case KindPhfBuildExhausted:
		return "PhfBuildExhausted"
	case KindRangeMismatch:
		return "RangeMismatch"
	case KindHTTPUnsupported:
		return "HttpUnsupported"
	case KindInvariantViolated:
		return "InvariantViolated"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type every fallible operation in this module
// returns. It carries a Kind so a caller can branch on the failure class
// without matching on message text, plus the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error, formatting msg/args with errors.Wrapf-style
// context when cause is non-nil, or errors.Errorf when it's nil.
func newError(kind Kind, cause error, msg string, args ...interface{}) *Error {
	var err error
	if cause != nil {
		err = errors.Wrapf(cause, msg, args...)
	} else {
		err = errors.Errorf(msg, args...)
	}
	return &Error{Kind: kind, Err: err}
}

// IsKind reports whether err (or something it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == k
	}
	return false
}
