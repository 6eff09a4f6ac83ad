package pczt

import "fmt"

// Structured errors for each failure domain of the PCZT lifecycle. Each
// carries a stable code for programmatic handling alongside the message.

// ProposalError reports a failure while assembling a proposal (Creator,
// Constructor, or IO Finalizer).
type ProposalError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ProposalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("proposal error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("proposal error [%s]: %s", e.Code, e.Message)
}

func (e *ProposalError) Unwrap() error { return e.Cause }

// ProverError reports a proof generation failure.
type ProverError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ProverError) Error() string {
	return fmt.Sprintf("prover error [%s]: %s", e.Code, e.Message)
}

func (e *ProverError) Unwrap() error { return e.Cause }

// VerificationFailure reports a mismatch between a PCZT and the
// transaction request it claims to implement.
type VerificationFailure struct {
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *VerificationFailure) Error() string {
	return fmt.Sprintf("verification failed [%s]: %s", e.Code, e.Message)
}

// SighashError reports a ZIP 244 digest failure for a transparent input.
type SighashError struct {
	InputIndex uint32
	Message    string
	Cause      error
}

func (e *SighashError) Error() string {
	return fmt.Sprintf("sighash error at input %d: %s", e.InputIndex, e.Message)
}

func (e *SighashError) Unwrap() error { return e.Cause }

// SignatureError reports an invalid or misplaced signature.
type SignatureError struct {
	InputIndex uint32
	Message    string
	Cause      error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature error at input %d: %s", e.InputIndex, e.Message)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

// CombineError reports incompatible or conflicting PCZTs.
type CombineError struct {
	Message string
	Cause   error
}

func (e *CombineError) Error() string {
	return fmt.Sprintf("combine error: %s", e.Message)
}

func (e *CombineError) Unwrap() error { return e.Cause }

// FinalizationError reports a Spend Finalizer or Transaction Extractor
// failure, typically missing signatures or proofs.
type FinalizationError struct {
	Code    string
	Message string
	Cause   error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalization error [%s]: %s", e.Code, e.Message)
}

func (e *FinalizationError) Unwrap() error { return e.Cause }

// ParseError reports malformed PCZT bytes: wrong magic, unsupported
// version, or a truncated Postcard body.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// UnsupportedError reports an operation this build cannot perform, such
// as Orchard proving without a configured backend.
type UnsupportedError struct {
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Operation)
}

// Stable error codes.
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrInvalidAddress      = "INVALID_ADDRESS"
	ErrInvalidSighash      = "INVALID_SIGHASH"
	ErrInvalidSignature    = "INVALID_SIGNATURE"
	ErrProofCreationFailed = "PROOF_CREATION_FAILED"
	ErrIncompletePCZT      = "INCOMPLETE_PCZT"
	ErrInvalidPCZT         = "INVALID_PCZT"
	ErrConflictingData     = "CONFLICTING_DATA"
	ErrNotImplemented      = "NOT_IMPLEMENTED"
)
