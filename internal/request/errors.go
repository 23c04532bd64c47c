package request

import "fmt"

// ValidationError reports a missing or malformed deploy attribute.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid attribute %q: %s", e.Field, e.Reason)
}

// ParseError reports a malformed environment-variable entry.
type ParseError struct {
	Entry string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Cannot parse environment variable '%s'. Expected format: key=value", e.Entry)
}
