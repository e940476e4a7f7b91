package build

import "fmt"

// IncompatiblePackError reports a pack whose requires-core constraint the
// configured core version does not satisfy. Every target of the pack fails
// with it.
type IncompatiblePackError struct {
	Pack        string
	Constraint  string
	CoreVersion string
}

func (e *IncompatiblePackError) Error() string {
	return fmt.Sprintf("pack %s requires core %s, have %s", e.Pack, e.Constraint, e.CoreVersion)
}
