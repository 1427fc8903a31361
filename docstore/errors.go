package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when an index build is attempted with no chunks.
	ErrEmptyCorpus = errors.New("no document chunks loaded")

	// ErrIndexNotBuilt is returned when the store is queried before BuildIndex.
	ErrIndexNotBuilt = errors.New("similarity index not built")
)

// IngestError reports a malformed corpus record. Ingest is all-or-nothing:
// when any record is malformed, no chunk from the call is kept.
type IngestError struct {
	File   string
	Reason string
}

func (e *IngestError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("malformed corpus record: %s", e.Reason)
	}

	return fmt.Sprintf("malformed corpus record %s: %s", e.File, e.Reason)
}
