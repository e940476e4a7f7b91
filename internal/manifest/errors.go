package manifest

import "fmt"

// ParseError reports a malformed structured block. It is fatal for the
// entry it names and for nothing else.
type ParseError struct {
	Entry     string // e.g. "agent:sm"
	Construct string // offending construct, e.g. "yaml block", "/dependencies"
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %v", e.Entry, e.Construct, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
