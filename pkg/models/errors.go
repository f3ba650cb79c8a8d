package models

import "errors"

// Code is one of the HTTP-like error codes surfaced in the {error:{code,
// message}} envelope (§7).
type Code string

const (
	CodeMissingParam Code = "MISSING_PARAM"
	CodeInvalidParam Code = "INVALID_PARAM"
	CodeNotFound     Code = "NOT_FOUND"
	CodeNoModel      Code = "NO_MODEL"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInvalidBody  Code = "INVALID_BODY"
)

// Error is a domain error carrying a stable Code alongside a human message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds an *Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrNotFound is the sentinel used by store lookups; wrap with a more
// specific message via NewError(CodeNotFound, ...) at the API boundary.
var ErrNotFound = errors.New("not found")

// ErrNoModel is returned by the ranker's pick/recommend when every
// candidate has been excluded.
var ErrNoModel = NewError(CodeNoModel, "no model satisfies the selection criteria")

// AsDomainError unwraps err into an *Error if one is present anywhere in
// its chain.
func AsDomainError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
