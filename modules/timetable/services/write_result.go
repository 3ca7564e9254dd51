package services

import (
	"errors"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

type ChunkPolicy string

const (
	ChunkAbort    ChunkPolicy = "abort"
	ChunkContinue ChunkPolicy = "continue"
)

const DefaultBatchSize = 1000

type WriteOptions struct {
	BatchSize int
	OnError   ChunkPolicy
	// OnlyChunks restricts the run to these 1-based chunk numbers. Nil means all chunks.
	OnlyChunks map[int]struct{}
	// OnChunk observes every attempted chunk.
	OnChunk func(ChunkReport)
}

// EffectiveBatchSize applies the default to a non-positive batch size.
func (o WriteOptions) EffectiveBatchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

// ChunkReport describes one attempted chunk.
type ChunkReport struct {
	Table     string
	Chunk     int
	Chunks    int
	Size      int
	Affected  int64
	Err       error
	Seconds   float64
	Committed bool
}

// ChunkFailure is the serializable identity of a rolled back chunk.
type ChunkFailure struct {
	Table  string `json:"table"`
	Chunk  int    `json:"chunk"`
	Chunks int    `json:"chunks"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Error  string `json:"error"`
}

func NewChunkFailure(err *domain.ChunkError) ChunkFailure {
	return ChunkFailure{
		Table:  err.Table,
		Chunk:  err.Chunk,
		Chunks: err.Chunks,
		Offset: err.Offset,
		Size:   err.Size,
		Error:  truncateError(err.Err, maxErrorBytes),
	}
}

// AsError rebuilds the chunk error for exit code mapping.
func (f ChunkFailure) AsError() *domain.ChunkError {
	return &domain.ChunkError{Table: f.Table, Chunk: f.Chunk, Chunks: f.Chunks, Offset: f.Offset, Size: f.Size, Err: errors.New(f.Error)}
}

// TableResult summarizes one table write.
type TableResult struct {
	Table   string `json:"table"`
	Records int    `json:"records"`
	// Written counts records in committed chunks, including no-op conflicts.
	Written      int            `json:"written"`
	Chunks       int            `json:"chunks"`
	Committed    int            `json:"committed"`
	Failed       int            `json:"failed"`
	Skipped      int            `json:"skipped"`
	NotAttempted int            `json:"not_attempted"`
	Affected     int64          `json:"affected"`
	Unchanged    int64          `json:"unchanged"`
	Failures     []ChunkFailure `json:"failures,omitempty"`
}

func (r TableResult) OK() bool {
	return r.Failed == 0 && r.NotAttempted == 0
}

// Selected reports whether chunk (1-based) should be attempted.
func (o WriteOptions) Selected(chunk int) bool {
	if o.OnlyChunks == nil {
		return true
	}
	_, ok := o.OnlyChunks[chunk]
	return ok
}
