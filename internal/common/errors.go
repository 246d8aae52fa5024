package common

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, oneLine(e.Cause.Error()))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Detail is the message followed by the underlying causes, without the code
// and the sentinel kinds, on a single line.
func (e *AppError) Detail() string {
	var parts []string
	for _, c := range causeParts(e.Cause) {
		if !slices.Contains(sentinels, c) {
			parts = append(parts, oneLine(c.Error()))
		}
	}
	if len(parts) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// ErrorDetail renders err for a user-facing outcome message.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Detail()
	}
	return oneLine(err.Error())
}

func causeParts(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// oneLine folds errors.Join output onto one line.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "; ")
}

// Error codes
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeEnumerate  = "ENUMERATE_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeLedger     = "LEDGER_ERROR"
)

// Pipeline error kinds. Only ErrConfiguration and ErrEnumeration abort a run;
// the others are recorded per document or reported after the run.
var (
	ErrConfiguration        = errors.New("configuration error")
	ErrEnumeration          = errors.New("input enumeration failed")
	ErrExtraction           = errors.New("text extraction failed")
	ErrFieldExtractionEmpty = errors.New("no structured data extracted")
	ErrRelocation           = errors.New("relocation failed")
	ErrLedger               = errors.New("ledger update failed")
)

var sentinels = []error{
	ErrConfiguration,
	ErrEnumeration,
	ErrExtraction,
	ErrFieldExtractionEmpty,
	ErrRelocation,
	ErrLedger,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewConfigError(message string) *AppError {
	return NewAppError(CodeConfig, message, ErrConfiguration)
}

func NewEnumerationError(message string, cause error) *AppError {
	return NewAppError(CodeEnumerate, message, errors.Join(ErrEnumeration, cause))
}

func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, errors.Join(ErrExtraction, cause))
}

func NewLedgerError(message string, cause error) *AppError {
	return NewAppError(CodeLedger, message, errors.Join(ErrLedger, cause))
}

// IsFatal reports whether err should abort a run before any document is touched.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrEnumeration)
}
