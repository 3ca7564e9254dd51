package services

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/logging"
)

type AmbiguityPolicy string

const (
	AmbiguityReject AmbiguityPolicy = "reject"
	AmbiguityFirst  AmbiguityPolicy = "first"
)

const maxSuggestions = 3

// schoolNameAbbreviations expands colloquial suffixes before fuzzy ranking.
var schoolNameAbbreviations = strings.NewReplacer(
	"여고", "여자고등학교",
	"여중", "여자중학교",
	"남고", "남자고등학교",
)

type groupKey struct {
	code string
	name string
}

func keyOf(ref domain.SchoolRef) groupKey {
	return groupKey{code: ref.AdministrativeCode, name: ref.Name}
}

type MatcherOptions struct {
	Scope     string
	Ambiguity AmbiguityPolicy
}

// MatchResult maps source school groups to registry schools for one run.
type MatchResult struct {
	Groups    int
	byGroup   map[groupKey]domain.School
	ByName    map[string]domain.School
	Unmatched []domain.MatchAbstention
	Ambiguous []domain.MatchAbstention
}

func (r *MatchResult) Lookup(ref domain.SchoolRef) (domain.School, bool) {
	if r == nil {
		return domain.School{}, false
	}
	s, ok := r.byGroup[keyOf(ref)]
	return s, ok
}

func (r *MatchResult) Matched() int {
	return len(r.byGroup)
}

// SchoolIDs returns matched ids in ascending order.
func (r *MatchResult) SchoolIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.byGroup))
	out := make([]int64, 0, len(r.byGroup))
	for _, s := range r.byGroup {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Matcher resolves source schools against the registry.
type Matcher struct {
	registry SchoolRegistry
	opts     MatcherOptions
	log      *logrus.Entry

	names       []string
	namesLoaded bool
}

func NewMatcher(registry SchoolRegistry, opts MatcherOptions, log *logrus.Entry) *Matcher {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Ambiguity == "" {
		opts.Ambiguity = AmbiguityReject
	}
	return &Matcher{registry: registry, opts: opts, log: log}
}

type schoolGroup struct {
	ref  domain.SchoolRef
	rows int
}

// groupSchools collapses records by (code, name) in first-seen order.
func groupSchools(records []domain.Record) []schoolGroup {
	index := make(map[groupKey]int)
	var groups []schoolGroup
	for _, rec := range records {
		k := keyOf(rec.School)
		if i, ok := index[k]; ok {
			groups[i].rows++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, schoolGroup{ref: rec.School, rows: 1})
	}
	return groups
}

// Match queries the registry once per group. A registry failure aborts with MatchError.
func (m *Matcher) Match(ctx context.Context, records []domain.Record) (*MatchResult, error) {
	groups := groupSchools(records)
	res := &MatchResult{
		Groups:  len(groups),
		byGroup: make(map[groupKey]domain.School, len(groups)),
		ByName:  make(map[string]domain.School, len(groups)),
	}

	for _, g := range groups {
		candidates, err := m.registry.FindSchools(ctx, g.ref, m.opts.Scope)
		if err != nil {
			return nil, &domain.MatchError{School: g.ref, Err: err}
		}

		school, abstention := m.decide(g, candidates)
		if abstention != nil {
			if abstention.Reason == domain.AbstentionUnmatched {
				abstention.Suggestions = m.suggest(ctx, g.ref.Name)
				res.Unmatched = append(res.Unmatched, *abstention)
			} else {
				res.Ambiguous = append(res.Ambiguous, *abstention)
			}
			m.log.WithFields(logrus.Fields{
				"school": g.ref.Label(),
				"reason": abstention.Reason,
				"rows":   g.rows,
			}).Warn("school not matched")
			continue
		}

		display := g.ref.Name
		if display == "" {
			display = g.ref.AdministrativeCode
		}
		if prev, ok := res.ByName[display]; ok && prev.ID != school.ID {
			res.Ambiguous = append(res.Ambiguous, domain.MatchAbstention{
				School:     g.ref,
				Name:       g.ref.Name,
				Code:       g.ref.AdministrativeCode,
				Reason:     domain.AbstentionAmbiguous,
				Rows:       g.rows,
				Candidates: []int64{prev.ID, school.ID},
			})
			m.log.WithFields(logrus.Fields{
				"school":   g.ref.Label(),
				"previous": prev.ID,
				"current":  school.ID,
			}).Warn("display name already resolved to another school")
			continue
		}
		res.ByName[display] = school
		res.byGroup[keyOf(g.ref)] = school
	}
	return res, nil
}

func (m *Matcher) decide(g schoolGroup, candidates []domain.School) (domain.School, *domain.MatchAbstention) {
	abstain := func(reason domain.AbstentionReason, ids []int64) *domain.MatchAbstention {
		return &domain.MatchAbstention{
			School:     g.ref,
			Name:       g.ref.Name,
			Code:       g.ref.AdministrativeCode,
			Reason:     reason,
			Rows:       g.rows,
			Candidates: ids,
		}
	}

	switch len(candidates) {
	case 0:
		return domain.School{}, abstain(domain.AbstentionUnmatched, nil)
	case 1:
		return candidates[0], nil
	}

	var exact []domain.School
	for _, c := range candidates {
		if g.ref.Name != "" && g.ref.AdministrativeCode != "" &&
			c.Name == g.ref.Name && c.AdministrativeCode == g.ref.AdministrativeCode {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	if m.opts.Ambiguity == AmbiguityFirst {
		pool := candidates
		if len(exact) > 1 {
			pool = exact
		}
		first := pool[0]
		for _, c := range pool[1:] {
			if c.ID < first.ID {
				first = c
			}
		}
		return first, nil
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return domain.School{}, abstain(domain.AbstentionAmbiguous, ids)
}

// suggest ranks registry names close to name. It is report-only and never fails the run.
func (m *Matcher) suggest(ctx context.Context, name string) []string {
	if name == "" {
		return nil
	}
	if !m.namesLoaded {
		m.namesLoaded = true
		names, err := m.registry.ListSchoolNames(ctx, m.opts.Scope)
		if err != nil {
			m.log.WithError(err).Warn("school name suggestions unavailable")
			return nil
		}
		m.names = names
	}
	return SuggestNames(name, m.names, maxSuggestions)
}

// SuggestNames returns up to limit candidates: subsequence matches first, then the
// closest names by edit distance.
func SuggestNames(name string, candidates []string, limit int) []string {
	if name == "" || len(candidates) == 0 || limit <= 0 {
		return nil
	}
	expanded := schoolNameAbbreviations.Replace(name)

	picked := make(map[string]struct{}, limit)
	var out []string
	add := func(s string) {
		if _, ok := picked[s]; ok || len(out) >= limit {
			return
		}
		picked[s] = struct{}{}
		out = append(out, s)
	}

	for _, query := range []string{expanded, name} {
		ranks := fuzzy.RankFindNormalizedFold(query, candidates)
		sort.Stable(ranks)
		for _, r := range ranks {
			add(r.Target)
		}
	}
	if len(out) >= limit {
		return out
	}

	type scored struct {
		name string
		dist int
	}
	maxDist := utf8.RuneCountInString(expanded) / 3
	var near []scored
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(expanded, c); d <= maxDist {
			near = append(near, scored{name: c, dist: d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
	for _, s := range near {
		add(s.name)
	}
	return out
}
