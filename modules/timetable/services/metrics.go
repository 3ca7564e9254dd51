package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a per-run collector set on a private registry, dumped to a
// node-exporter textfile when configured.
type Metrics struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	matches       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	chunks        *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
	rowsAffected  *prometheus.CounterVec
	lastRun       *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Source rows broken down by normalizer outcome.",
		}, []string{"outcome"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Subsystem: "match",
			Name:      "groups_total",
			Help:      "Source school groups broken down by match result.",
		}, []string{"result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Subsystem: "import",
			Name:      "dropped_total",
			Help:      "Records dropped before persistence broken down by reason.",
		}, []string{"reason"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Subsystem: "write",
			Name:      "chunks_total",
			Help:      "Attempted upsert chunks broken down by table and result.",
		}, []string{"table", "result"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timetable",
			Subsystem: "write",
			Name:      "chunk_duration_seconds",
			Help:      "Upsert chunk transaction duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"table"}),
		rowsAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Subsystem: "write",
			Name:      "rows_affected_total",
			Help:      "Rows inserted or updated by committed chunks.",
		}, []string{"table"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "timetable",
			Subsystem: "import",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run broken down by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(m.rows, m.matches, m.dropped, m.chunks, m.chunkDuration, m.rowsAffected, m.lastRun)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) recordRows(s RowCounts) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("accepted").Add(float64(s.Accepted))
	m.rows.WithLabelValues("filtered").Add(float64(s.Filtered))
	m.rows.WithLabelValues("rejected").Add(float64(s.Rejected))
	m.rows.WithLabelValues("coerced").Add(float64(s.Coerced))
}

func (m *Metrics) recordMatch(s MatchCounts) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues("matched").Add(float64(s.Matched))
	m.matches.WithLabelValues("unmatched").Add(float64(s.Unmatched))
	m.matches.WithLabelValues("ambiguous").Add(float64(s.Ambiguous))
}

func (m *Metrics) recordDropped(d DropCounts) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues("unmatched").Add(float64(d.Unmatched))
	m.dropped.WithLabelValues("incomplete").Add(float64(d.Incomplete))
	m.dropped.WithLabelValues("out_of_range").Add(float64(d.OutOfRange))
	m.dropped.WithLabelValues("duplicate").Add(float64(d.Duplicates))
	m.dropped.WithLabelValues("unresolved_class").Add(float64(d.UnresolvedClass))
}

func (m *Metrics) recordChunk(r ChunkReport) {
	if m == nil {
		return
	}
	result := "committed"
	if !r.Committed {
		result = "failed"
	}
	m.chunks.WithLabelValues(r.Table, result).Inc()
	m.chunkDuration.WithLabelValues(r.Table).Observe(r.Seconds)
	if r.Committed {
		m.rowsAffected.WithLabelValues(r.Table).Add(float64(r.Affected))
	}
}

func (m *Metrics) recordFinished(status string, unix float64) {
	if m == nil {
		return
	}
	m.lastRun.WithLabelValues(status).Set(unix)
}
