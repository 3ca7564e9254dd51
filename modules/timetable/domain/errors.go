package domain

import (
	"errors"
	"fmt"
)

// ErrNothingWritten marks a run that completed without persisting a single row.
var ErrNothingWritten = errors.New("no rows written")

// ErrFullRunRequired marks a chunk retry whose chunk numbers can no longer match the
// failed run, because class rows it depended on were not stored.
var ErrFullRunRequired = errors.New("chunk retry not possible, rerun the whole file")

// FileStructureError is fatal for the whole file and is raised before any write.
type FileStructureError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FileStructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *FileStructureError) Unwrap() error { return e.Err }

// ParseError describes one unusable field of one row.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s=%q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s=%q", e.Line, e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MatchError aborts the match stage; it wraps the registry failure.
type MatchError struct {
	School SchoolRef
	Err    error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("match %s: %v", e.School.Label(), e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

type AbstentionReason string

const (
	AbstentionUnmatched AbstentionReason = "unmatched"
	AbstentionAmbiguous AbstentionReason = "ambiguous"
)

// MatchAbstention is reported per source school group; the run continues without it.
type MatchAbstention struct {
	School      SchoolRef        `json:"-"`
	Name        string           `json:"name"`
	Code        string           `json:"code,omitempty"`
	Reason      AbstentionReason `json:"reason"`
	Rows        int              `json:"rows"`
	Candidates  []int64          `json:"candidates,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

func (e *MatchAbstention) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("%s: %s (candidates %v)", e.School.Label(), e.Reason, e.Candidates)
	}
	return fmt.Sprintf("%s: %s", e.School.Label(), e.Reason)
}

// ChunkError identifies a rolled back chunk so it can be retried on its own.
type ChunkError struct {
	Table  string
	Chunk  int
	Chunks int
	Offset int
	Size   int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s chunk %d/%d (offset %d, size %d): %v", e.Table, e.Chunk, e.Chunks, e.Offset, e.Size, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ConnectionError is a run-level failure to reach the database.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
