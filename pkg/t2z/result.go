package t2z

import (
	"errors"
	"fmt"
	"sync"

	"github.com/suffix-labs/zcash-t2z/pkg/pczt"
)

// ResultCode classifies every outcome of the handle layer into a stable
// numeric taxonomy. Callers that cannot inspect Go error values (host
// bindings, exit codes) switch on this instead.
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultNullInput
	ResultMalformedText
	ResultBufferTooSmall
	ResultProposalError
	ResultProvingError
	ResultVerificationError
	ResultSighashError
	ResultSignatureError
	ResultCombineError
	ResultFinalizationError
	ResultParseError
	ResultUnsupported
)

// String returns the canonical name of the code.
func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "ok"
	case ResultNullInput:
		return "null-input"
	case ResultMalformedText:
		return "malformed-text"
	case ResultBufferTooSmall:
		return "buffer-too-small"
	case ResultProposalError:
		return "proposal-error"
	case ResultProvingError:
		return "proving-error"
	case ResultVerificationError:
		return "verification-error"
	case ResultSighashError:
		return "sighash-error"
	case ResultSignatureError:
		return "signature-error"
	case ResultCombineError:
		return "combine-error"
	case ResultFinalizationError:
		return "finalization-error"
	case ResultParseError:
		return "parse-error"
	case ResultUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("result(%d)", int(c))
}

// UseError reports misuse of the handle layer itself: nil or consumed
// handles, empty inputs.
type UseError struct {
	Message string
}

func (e *UseError) Error() string { return e.Message }

// BufferError reports a caller-supplied buffer that cannot hold the
// serialized output.
type BufferError struct {
	Needed int
	Got    int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("buffer too small: need %d bytes, got %d", e.Needed, e.Got)
}

// Code maps an error from this package (or the role packages beneath it)
// onto the result taxonomy. A nil error is ResultOK.
func Code(err error) ResultCode {
	if err == nil {
		return ResultOK
	}

	var useErr *UseError
	if errors.As(err, &useErr) {
		return ResultNullInput
	}
	var bufErr *BufferError
	if errors.As(err, &bufErr) {
		return ResultBufferTooSmall
	}
	var unsupported *pczt.UnsupportedError
	if errors.As(err, &unsupported) {
		return ResultUnsupported
	}
	var proposal *pczt.ProposalError
	if errors.As(err, &proposal) {
		return ResultProposalError
	}
	var prover *pczt.ProverError
	if errors.As(err, &prover) {
		return ResultProvingError
	}
	var verification *pczt.VerificationFailure
	if errors.As(err, &verification) {
		return ResultVerificationError
	}
	var sighash *pczt.SighashError
	if errors.As(err, &sighash) {
		return ResultSighashError
	}
	var signature *pczt.SignatureError
	if errors.As(err, &signature) {
		return ResultSignatureError
	}
	var combine *pczt.CombineError
	if errors.As(err, &combine) {
		return ResultCombineError
	}
	var finalization *pczt.FinalizationError
	if errors.As(err, &finalization) {
		return ResultFinalizationError
	}
	var parse *pczt.ParseError
	if errors.As(err, &parse) {
		return ResultParseError
	}
	return ResultMalformedText
}

// Process-wide last-error slot. Host bindings that only see a result
// code fetch the message separately.
var lastError struct {
	mu  sync.Mutex
	msg string
}

// record stores the error message in the last-error slot and passes the
// error through.
func record(err error) error {
	if err == nil {
		return nil
	}
	lastError.mu.Lock()
	lastError.msg = err.Error()
	lastError.mu.Unlock()
	return err
}

// LastError returns the message of the most recent failure anywhere in
// the handle layer, or the empty string.
func LastError() string {
	lastError.mu.Lock()
	defer lastError.mu.Unlock()
	return lastError.msg
}

// ClearLastError empties the slot.
func ClearLastError() {
	lastError.mu.Lock()
	lastError.msg = ""
	lastError.mu.Unlock()
}
