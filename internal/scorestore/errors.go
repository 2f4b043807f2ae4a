package scorestore

import "fmt"

// CorruptStoreError reports a statistics file that exists but cannot be
// decoded or violates the statistics invariants. The file is left untouched;
// the caller decides whether to abort or start over.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("scorestore: corrupt statistics file %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write of the statistics file. The
// in-memory statistics already include the update; the previous file on disk
// is intact.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("scorestore: persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
