package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is returned when the backing document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrCorruptState is returned when the document cannot be parsed or breaks an invariant.
	ErrCorruptState = errors.New("document is corrupt")
	// ErrStorageIO is returned when the document cannot be read or written.
	ErrStorageIO = errors.New("document storage failure")
	// ErrDocumentExists is returned when creating a document that is already present.
	ErrDocumentExists = errors.New("document already exists")
)

// StoreError describes a failed store operation. It unwraps to both its Kind sentinel and the
// underlying cause.
type StoreError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes the sentinel kind and the cause to errors.Is / errors.As.
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
