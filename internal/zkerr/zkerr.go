// Package zkerr defines the tinyzkp error taxonomy. Every failure mode the
// engine can produce is a value of a fixed Kind, never a panic or an exit —
// the one exception being InternalInvariantViolated, which indicates a
// genuine defect (a broken tile-accounting or memory-bound invariant) rather
// than a recoverable protocol failure.
package zkerr

import "fmt"

// Kind enumerates the failure categories the engine can return.
type Kind int

const (
	// InvalidRequest covers malformed input: rows=0, inconsistent k, etc.
	InvalidRequest Kind = iota
	// DomainTooLarge means N exceeds max_n or the loaded SRS capacity.
	DomainTooLarge
	// SrsNotReady means SRS loading is still in progress; retryable.
	SrsNotReady
	// SrsCorrupt means the SRS file failed structural or subgroup validation.
	SrsCorrupt
	// SrsDigestMismatch means a proof's embedded SRS digest disagrees with
	// the verifier's loaded SRS.
	SrsDigestMismatch
	// WitnessTooShort means the witness stream ended before T rows.
	WitnessTooShort
	// WitnessTooWide means a row's width disagrees with k.
	WitnessTooWide
	// ConstraintUnsatisfied means the prover's own self-check found
	// C(ζ)/Zₕ(ζ) ≠ Q(ζ) before ever producing a proof.
	ConstraintUnsatisfied
	// AlgebraicCheckFailed means the verifier's constraint identity at ζ
	// failed.
	AlgebraicCheckFailed
	// PairingFailed means the batched KZG pairing check failed.
	PairingFailed
	// TranscriptMismatch means a re-derived Fiat–Shamir challenge disagreed
	// with what the proof implicitly committed to.
	TranscriptMismatch
	// Cancelled means the proof job was cooperatively cancelled.
	Cancelled
	// InternalInvariantViolated means a defect was detected: a memory bound
	// was exceeded, or tile accounting broke an assumed invariant.
	InternalInvariantViolated
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "InvalidRequest"
	case DomainTooLarge:
		return "DomainTooLarge"
	case SrsNotReady:
		return "SrsNotReady"
	case SrsCorrupt:
		return "SrsCorrupt"
	case SrsDigestMismatch:
		return "SrsDigestMismatch"
	case WitnessTooShort:
		return "WitnessTooShort"
	case WitnessTooWide:
		return "WitnessTooWide"
	case ConstraintUnsatisfied:
		return "ConstraintUnsatisfied"
	case AlgebraicCheckFailed:
		return "AlgebraicCheckFailed"
	case PairingFailed:
		return "PairingFailed"
	case TranscriptMismatch:
		return "TranscriptMismatch"
	case Cancelled:
		return "Cancelled"
	case InternalInvariantViolated:
		return "InternalInvariantViolated"
	default:
		return "Unknown"
	}
}

// Error is the concrete error value carried through the engine. Two Errors
// compare equal under errors.Is when their Kind matches, regardless of Msg.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is implements errors.Is by Kind equality, so callers can write
// errors.Is(err, zkerr.New(zkerr.SrsNotReady, "")) to test the category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an Error of the given Kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap constructs an Error of the given Kind wrapping cause.
func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Msg: msg, Cause: cause}
}
