// Package apperr defines the error taxonomy shared across ditakeeper.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks an expected file that is absent on disk.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists marks a rename or write target collision. Batch
	// operations log and skip it rather than aborting.
	ErrAlreadyExists = errors.New("already exists")
	// ErrParse marks content that cannot be parsed as an XML document.
	ErrParse = errors.New("parse error")
	// ErrMalformed marks a parsed document whose structure violates the
	// shape an operation requires (missing body container, wrong root tag).
	ErrMalformed = errors.New("malformed document")
)

// InconsistentProjectError is returned when a Cheetah-derived project has
// topics and sidecar records whose base-name sets do not match. It aborts
// map construction; the orphaned base names must be resolved first.
type InconsistentProjectError struct {
	// Orphans holds the sorted symmetric difference of the two sets.
	Orphans []string
}

func (e *InconsistentProjectError) Error() string {
	return fmt.Sprintf("inconsistent project: files without a pair: %s",
		strings.Join(e.Orphans, ", "))
}

// MissingAuxRecordError is returned during topic discovery when a Cheetah
// project topic has no sidecar record next to it.
type MissingAuxRecordError struct {
	TopicPath string
}

func (e *MissingAuxRecordError) Error() string {
	return fmt.Sprintf("missing sidecar record for topic %s", e.TopicPath)
}

func (e *MissingAuxRecordError) Unwrap() error { return ErrNotFound }
