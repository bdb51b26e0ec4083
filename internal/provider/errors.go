package provider

import "fmt"

// ValidationError reports bad input detected before any request is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError reports a failed round trip: network error, timeout,
// non-2xx status or a body that is not JSON.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s -> %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a raw element that does not match the provider's
// expected shape. Index is the element position in the payload.
type SchemaError struct {
	Source string
	Index  int
	Field  string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: element %d: field %q: %v", e.Source, e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: element %d: %v", e.Source, e.Index, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
