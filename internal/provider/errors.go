package provider

import (
	"errors"
	"fmt"
	"strings"
)

// CodeMissingScope is the provider's error code for an access token that
// lacks a required OAuth scope.
const CodeMissingScope = 4711

// APIError is a non-2xx response from the provider, parsed from its
// `{code, message}` error body.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Endpoint   string `json:"endpoint"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider %s: status %d code %d: %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
}

// IsScopeError reports whether the error means the token is missing an OAuth
// scope. Callers should surface this distinctly: it calls for
// re-authorization, not a retry.
func (e *APIError) IsScopeError() bool {
	return e.Code == CodeMissingScope || strings.Contains(strings.ToLower(e.Message), "scopes")
}

// IsScopeError reports whether err (anywhere in its chain) is a
// missing-OAuth-scope rejection from the provider.
func IsScopeError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsScopeError()
}

// IsNotFound reports whether err is a provider 404 (e.g. no past-webinar data
// exists for the given identifier).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
