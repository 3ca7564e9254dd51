package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

const maxReportedRejections = 200

type RowCounts struct {
	Read     int `json:"read"`
	Accepted int `json:"accepted"`
	Filtered int `json:"filtered"`
	Rejected int `json:"rejected"`
	Coerced  int `json:"coerced"`
}

type MatchCounts struct {
	Groups    int `json:"groups"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Ambiguous int `json:"ambiguous"`
}

type StagedCounts struct {
	Classes  int `json:"classes"`
	Entries  int `json:"entries"`
	Subjects int `json:"subjects"`
}

type RejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Summary is the outcome of one import run.
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	File       string    `json:"file"`
	Variant    string    `json:"variant"`
	Weekday    int       `json:"weekday,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	DryRun     bool      `json:"dry_run"`
	Retry      bool      `json:"retry"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Rows    RowCounts     `json:"rows"`
	Match   MatchCounts   `json:"match"`
	Dropped DropCounts    `json:"dropped"`
	Staged  StagedCounts  `json:"staged"`
	Tables  []TableResult `json:"tables"`
	Written int           `json:"written"`

	FailedChunks []ChunkFailure           `json:"failed_chunks,omitempty"`
	Unmatched    []domain.MatchAbstention `json:"unmatched,omitempty"`
	Ambiguous    []domain.MatchAbstention `json:"ambiguous,omitempty"`
	Rejected     []RejectedRow            `json:"rejected,omitempty"`

	Stats *StatsReport `json:"stats,omitempty"`
}

// SummaryLine is the compact form printed on stdout.
type SummaryLine struct {
	Status       string         `json:"status"`
	RunID        uuid.UUID      `json:"run_id"`
	File         string         `json:"file"`
	Variant      string         `json:"variant"`
	Weekday      int            `json:"weekday,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	DryRun       bool           `json:"dry_run"`
	Rows         RowCounts      `json:"rows"`
	Match        MatchCounts    `json:"match"`
	Dropped      DropCounts     `json:"dropped"`
	Tables       []TableResult  `json:"tables"`
	Written      int            `json:"written"`
	FailedChunks []ChunkFailure `json:"failed_chunks,omitempty"`
	Stats        *StatsReport   `json:"stats,omitempty"`
}

func (s *Summary) Line(status string) SummaryLine {
	return SummaryLine{
		Status:       status,
		RunID:        s.RunID,
		File:         s.File,
		Variant:      s.Variant,
		Weekday:      s.Weekday,
		Scope:        s.Scope,
		DryRun:       s.DryRun,
		Rows:         s.Rows,
		Match:        s.Match,
		Dropped:      s.Dropped,
		Tables:       s.Tables,
		Written:      s.Written,
		FailedChunks: s.FailedChunks,
		Stats:        s.Stats,
	}
}

func (s *Summary) addOutcome(o domain.Outcome) {
	s.Rows.Read++
	switch v := o.(type) {
	case domain.Accepted:
		s.Rows.Accepted++
		if len(v.Record.Coerced) > 0 {
			s.Rows.Coerced++
		}
	case domain.Excluded:
		s.Rows.Filtered++
	case domain.Rejected:
		s.Rows.Rejected++
		if len(s.Rejected) < maxReportedRejections {
			s.Rejected = append(s.Rejected, RejectedRow{
				Line:   v.Line,
				Reason: v.Reason,
				Detail: truncateError(v.Err, maxErrorBytes),
			})
		}
	}
}

func (s *Summary) addTable(r TableResult) {
	s.Tables = append(s.Tables, r)
	s.Written += r.Written
	s.FailedChunks = append(s.FailedChunks, r.Failures...)
}
