package cdp

import "fmt"

const (
	CodeValidation     = "VALIDATION"
	CodeParseFailure   = "PARSE_FAILURE"
	CodeFlagStore      = "FLAG_STORE"
	CodeTabNotFound    = "TAB_NOT_FOUND"
	CodeUpdateFailure  = "UPDATE_FAILURE"
	CodeCDPUnavailable = "CDP_UNAVAILABLE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a CodedError; used across the service and API layers.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// TabInfo describes one attached page target.
type TabInfo struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}
