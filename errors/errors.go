// Package errors provides error handling for typeforge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Structured details (offending tokens, cycle members, pipeline stage)
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrUnbreakableCycle) {
//	    // handle unorderable metadata
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"fmt"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint        = crdb.WithHint
	WithHintf       = crdb.WithHintf
	WithDetail      = crdb.WithDetail
	WithDetailf     = crdb.WithDetailf
	WithSafeDetails = crdb.WithSafeDetails
	GetAllDetails   = crdb.GetAllDetails
	GetAllHints     = crdb.GetAllHints
	FlattenDetails  = crdb.FlattenDetails
	FlattenHints    = crdb.FlattenHints
)

// Error inspection
var (
	Is         = crdb.Is
	IsAny      = crdb.IsAny
	As         = crdb.As
	Unwrap     = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll  = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Pipeline failure conditions. Every abort path in the generation pipeline
// wraps exactly one of these sentinels so callers can classify failures with
// errors.Is() without string matching.
var (
	// ErrSourceUnavailable indicates the metadata or native-image input is
	// missing or unreadable. Raised before any graph construction begins.
	ErrSourceUnavailable = New("source unavailable")

	// ErrMetadataInconsistency indicates the adapter yielded a reference to a
	// token with no backing record. Always reported with the offending token.
	ErrMetadataInconsistency = New("metadata inconsistency")

	// ErrUnresolvedGenericBinding indicates a generic instantiation could not
	// be fully concretized (an argument still names an open generic parameter).
	ErrUnresolvedGenericBinding = New("unresolved generic binding")

	// ErrUnbreakableCycle indicates a by-value containment cycle that no
	// forward-declaration strategy can break. Reported with all cycle members.
	ErrUnbreakableCycle = New("unbreakable by-value cycle")

	// ErrOutputWriteFailure indicates a filesystem-level failure while writing
	// one target's artifacts. Other targets are unaffected.
	ErrOutputWriteFailure = New("output write failure")
)

// IsSourceUnavailable checks if an error is or wraps ErrSourceUnavailable.
func IsSourceUnavailable(err error) bool {
	return err != nil && Is(err, ErrSourceUnavailable)
}

// IsMetadataInconsistency checks if an error is or wraps ErrMetadataInconsistency.
func IsMetadataInconsistency(err error) bool {
	return err != nil && Is(err, ErrMetadataInconsistency)
}

// IsUnresolvedGenericBinding checks if an error is or wraps ErrUnresolvedGenericBinding.
func IsUnresolvedGenericBinding(err error) bool {
	return err != nil && Is(err, ErrUnresolvedGenericBinding)
}

// IsUnbreakableCycle checks if an error is or wraps ErrUnbreakableCycle.
func IsUnbreakableCycle(err error) bool {
	return err != nil && Is(err, ErrUnbreakableCycle)
}

// IsOutputWriteFailure checks if an error is or wraps ErrOutputWriteFailure.
func IsOutputWriteFailure(err error) bool {
	return err != nil && Is(err, ErrOutputWriteFailure)
}

// NewMetadataInconsistency creates a metadata-inconsistency error citing the
// offending token and where it was referenced from.
func NewMetadataInconsistency(token uint32, context string) error {
	return WithDetailf(
		Wrapf(ErrMetadataInconsistency, "token 0x%08x has no backing record (%s)", token, context),
		"token: %d", token)
}

// NewUnresolvedGenericBinding creates an unresolved-binding error for the
// given generic definition token.
func NewUnresolvedGenericBinding(definition uint32, detail string) error {
	return Wrapf(ErrUnresolvedGenericBinding,
		"generic definition 0x%08x: %s", definition, detail)
}

// NewUnbreakableCycle creates an unbreakable-cycle error naming every member
// of the strongly-connected component so the operator can diagnose the
// source metadata.
func NewUnbreakableCycle(members []uint32) error {
	parts := make([]string, len(members))
	for i, tok := range members {
		parts[i] = fmt.Sprintf("0x%08x", tok)
	}
	return WithDetailf(
		Wrapf(ErrUnbreakableCycle, "by-value containment cycle: [%s]", strings.Join(parts, " ")),
		"cycle members: %v", members)
}

// WrapSourceUnavailable wraps a filesystem error as a source-availability failure.
func WrapSourceUnavailable(err error, path string) error {
	return Wrap(Wrapf(ErrSourceUnavailable, "%s", path), err.Error())
}

// WrapOutputWriteFailure wraps a filesystem error as an output-write failure
// for one target.
func WrapOutputWriteFailure(err error, target string) error {
	return Wrap(Wrapf(ErrOutputWriteFailure, "target %s", target), err.Error())
}
