// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package faults defines the error taxonomy surfaced to callers of the
// graph cache: every failure crossing a component boundary is classified
// into one of a small set of kinds so callers can decide retry vs. abort
// without string matching.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is bad caller input (e.g. missing directory argument).
	KindValidation Kind = "validation_error"

	// KindNotFound is an absent directory or cache entry.
	KindNotFound Kind = "not_found_error"

	// KindAuthentication is a rejected credential from the analysis service.
	KindAuthentication Kind = "authentication_error"

	// KindAuthorization is a permitted-credential, forbidden-action rejection.
	KindAuthorization Kind = "authorization_error"

	// KindRateLimit is an analysis-service rate limit rejection.
	KindRateLimit Kind = "rate_limit_error"

	// KindTimeout is an external call exceeding its configured bound.
	KindTimeout Kind = "timeout_error"

	// KindNetwork is a transport failure with no response at all.
	KindNetwork Kind = "network_error"

	// KindInternal is anything unexpected. Internal errors are reportable.
	KindInternal Kind = "internal_error"
)

// Error is a classified failure.
type Error struct {
	// Kind is the taxonomy classification.
	Kind Kind

	// Op names the failing operation, for logs ("analyzer.Analyze").
	Op string

	// Err is the underlying cause, if any.
	Err error

	// Msg is an optional human-readable detail.
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Reportable reports whether the failure should be flagged for operators.
// Only internal (unclassified) failures are reportable.
func (e *Error) Reportable() bool {
	return e.Kind == KindInternal
}

// New builds a classified error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
