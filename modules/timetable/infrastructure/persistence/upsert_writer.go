package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	ferrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/modules/timetable/services"
	"github.com/heartware/timetable-sync/pkg/composables"
	"github.com/heartware/timetable-sync/pkg/logging"
)

// UpsertWriter writes descriptor rows in size-bounded chunks, one transaction per chunk.
// It expects a pool bound to ctx via composables.WithPool.
type UpsertWriter struct {
	log *logrus.Entry
}

func NewUpsertWriter(log *logrus.Entry) *UpsertWriter {
	if log == nil {
		log = logging.Nop()
	}
	return &UpsertWriter{log: log}
}

// Upsert returns a non-nil error only when it stopped early: a failed chunk under the
// abort policy, or a cancelled context. Failures under the continue policy are
// reported in the result.
func (w *UpsertWriter) Upsert(ctx context.Context, d domain.TableDescriptor, rows [][]any, opts services.WriteOptions) (services.TableResult, error) {
	res := services.TableResult{Table: d.Table, Records: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}
	size := opts.EffectiveBatchSize()
	chunks := (len(rows) + size - 1) / size
	res.Chunks = chunks
	log := w.log.WithField("table", d.Table)

	for i := 0; i < chunks; i++ {
		n := i + 1
		if !opts.Selected(n) {
			res.Skipped++
			continue
		}
		offset := i * size
		end := min(offset+size, len(rows))

		if err := ctx.Err(); err != nil {
			countRemaining(&res, opts, i, chunks)
			return res, err
		}

		start := time.Now()
		affected, err := w.writeChunk(ctx, d, rows[offset:end])
		report := services.ChunkReport{
			Table:     d.Table,
			Chunk:     n,
			Chunks:    chunks,
			Size:      end - offset,
			Affected:  affected,
			Err:       err,
			Seconds:   time.Since(start).Seconds(),
			Committed: err == nil,
		}
		if opts.OnChunk != nil {
			opts.OnChunk(report)
		}

		if err != nil {
			chunkErr := &domain.ChunkError{Table: d.Table, Chunk: n, Chunks: chunks, Offset: offset, Size: end - offset, Err: err}
			res.Failed++
			res.Failures = append(res.Failures, services.NewChunkFailure(chunkErr))
			log.WithFields(logrus.Fields{
				"chunk":  n,
				"chunks": chunks,
				"offset": offset,
				"size":   end - offset,
			}).WithError(err).Error("chunk rolled back")

			if opts.OnError != services.ChunkContinue || errors.Is(err, context.Canceled) {
				countRemaining(&res, opts, n, chunks)
				return res, chunkErr
			}
			continue
		}

		res.Committed++
		res.Written += end - offset
		res.Affected += affected
		res.Unchanged += int64(end-offset) - affected
		log.WithFields(logrus.Fields{
			"chunk":    n,
			"chunks":   chunks,
			"affected": affected,
		}).Debug("chunk committed")
	}
	return res, nil
}

// countRemaining classifies chunks from index next onwards as skipped or not attempted.
func countRemaining(res *services.TableResult, opts services.WriteOptions, next, chunks int) {
	for j := next; j < chunks; j++ {
		if opts.Selected(j + 1) {
			res.NotAttempted++
		} else {
			res.Skipped++
		}
	}
}

func (w *UpsertWriter) writeChunk(ctx context.Context, d domain.TableDescriptor, chunk [][]any) (int64, error) {
	var affected int64
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		per := rowsPerStatement(d)
		for off := 0; off < len(chunk); off += per {
			part := chunk[off:min(off+per, len(chunk))]
			for i, r := range part {
				if len(r) != len(d.Columns) {
					return fmt.Errorf("row %d has %d values, %s expects %d", off+i, len(r), d.Table, len(d.Columns))
				}
			}
			tag, err := tx.Exec(txCtx, upsertSQL(d, len(part)), flatten(part)...)
			if err != nil {
				return ferrors.Wrapf(err, "upsert %s", d.Table)
			}
			affected += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
