package services

import (
	"context"
	"sort"
	"sync"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

type fakeRegistry struct {
	schools []domain.School
	err     error
	calls   int
}

func (f *fakeRegistry) FindSchools(_ context.Context, ref domain.SchoolRef, scope string) ([]domain.School, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.School
	for _, s := range f.schools {
		if scope != "" && s.AuthorityCode != scope {
			continue
		}
		if (ref.Name != "" && s.Name == ref.Name) || (ref.AdministrativeCode != "" && s.AdministrativeCode == ref.AdministrativeCode) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRegistry) ListSchoolNames(_ context.Context, scope string) ([]string, error) {
	var out []string
	for _, s := range f.schools {
		if scope == "" || s.AuthorityCode == scope {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeStore acts as both writer and class resolver; class ids are assigned on write.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string][][]any
	classIDs  map[domain.ClassKey]int64
	failTable string
	calls     []string
	lastOpts  map[string]WriteOptions
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:     map[string][][]any{},
		classIDs: map[domain.ClassKey]int64{},
		lastOpts: map[string]WriteOptions{},
	}
}

func (f *fakeStore) Upsert(_ context.Context, d domain.TableDescriptor, rows [][]any, opts WriteOptions) (TableResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d.Table)
	f.lastOpts[d.Table] = opts

	res := TableResult{Table: d.Table, Records: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}
	res.Chunks = 1
	if d.Table == f.failTable {
		chunkErr := &domain.ChunkError{Table: d.Table, Chunk: 1, Chunks: 1, Size: len(rows), Err: context.DeadlineExceeded}
		res.Failed = 1
		res.Failures = []ChunkFailure{NewChunkFailure(chunkErr)}
		if opts.OnError == ChunkContinue {
			return res, nil
		}
		return res, chunkErr
	}
	f.rows[d.Table] = append(f.rows[d.Table], rows...)
	if d.Table == "school_classes" {
		for _, r := range rows {
			key := domain.ClassKey{
				SchoolID:     r[0].(int64),
				Grade:        r[1].(int),
				Label:        r[2].(string),
				AcademicYear: r[3].(int),
				Semester:     r[4].(int),
			}
			if _, ok := f.classIDs[key]; !ok {
				f.classIDs[key] = int64(len(f.classIDs) + 100)
			}
		}
	}
	res.Committed = 1
	res.Written = len(rows)
	res.Affected = int64(len(rows))
	return res, nil
}

func (f *fakeStore) ResolveClassIDs(_ context.Context, _ domain.TableDescriptor, schoolIDs []int64) (map[domain.ClassKey]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[int64]struct{}{}
	for _, id := range schoolIDs {
		allowed[id] = struct{}{}
	}
	out := map[domain.ClassKey]int64{}
	for k, id := range f.classIDs {
		if _, ok := allowed[k.SchoolID]; ok {
			out[k] = id
		}
	}
	return out, nil
}
