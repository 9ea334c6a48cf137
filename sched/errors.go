package sched

import "fmt"

// DuplicateSystemError signals two systems were registered under the
// same name: a contract violation, since GoesAfter edges and stats
// lookups both resolve systems by name.
type DuplicateSystemError struct {
	Name string
}

func (e DuplicateSystemError) Error() string {
	return fmt.Sprintf("sched: system %q is already registered", e.Name)
}
