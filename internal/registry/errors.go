package registry

import "fmt"

// NotFoundError reports that no root provides a resource.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in any source", e.ID)
}

// DuplicateIDError reports an ill-formed source list: two sources sharing a
// name or base path, or one source carrying two files that canonicalize to
// the same id. It can only occur while a Snapshot is being constructed.
type DuplicateIDError struct {
	Source string
	ID     ID     // zero for duplicate sources
	First  string // first path or source seen
	Second string // conflicting path or source
}

func (e *DuplicateIDError) Error() string {
	if e.ID == (ID{}) {
		return fmt.Sprintf("duplicate source %q: %s and %s", e.Source, e.First, e.Second)
	}
	return fmt.Sprintf("source %q defines %s twice: %s and %s", e.Source, e.ID, e.First, e.Second)
}
