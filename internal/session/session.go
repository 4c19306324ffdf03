package session

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// Session is one user's dashboard state: the submitted sources, the current
// selection and the caches derived from them. It is owned by a single
// interaction loop and is not safe for concurrent use.
type Session struct {
	ID string

	sources []dataset.Source
	cache   *dataset.Cache
	opt     analysis.Options

	metric    string
	choices   []string
	countries []string
	// allCountries selects every loaded country until the user narrows it.
	allCountries bool

	table   *dataset.Table
	loadErr error

	result    *analysis.Result
	resultErr error
	resultKey string
}

// New constructs a session over sources. Call Refresh to load them.
func New(sources []dataset.Source, dopt dataset.Options, aopt analysis.Options, metric string) *Session {
	if strings.TrimSpace(metric) == "" {
		metric = analysis.DefaultMetric
	}
	s := &Session{
		ID:           uuid.NewString(),
		cache:        dataset.NewCache(dopt),
		opt:          aopt,
		metric:       metric,
		allCountries: true,
	}
	s.SetSources(sources)
	return s
}

// SetSources replaces the submitted sources. The next Refresh re-parses only
// if their identity changed.
func (s *Session) SetSources(sources []dataset.Source) {
	s.sources = append([]dataset.Source(nil), sources...)
}

// Sources returns the submitted sources in order.
func (s *Session) Sources() []dataset.Source {
	return append([]dataset.Source(nil), s.sources...)
}

// Refresh brings the Unified Table up to date with the sources. An unchanged
// set of sources reuses the cached table. The returned error is recoverable:
// under a partial policy the table still holds the countries that loaded.
func (s *Session) Refresh() (*dataset.Table, error) {
	t, hit, err := s.cache.Load(s.sources)
	if !hit {
		s.result, s.resultErr, s.resultKey = nil, nil, ""
	}
	s.table, s.loadErr = t, err
	log.WithFields(log.Fields{"session": s.ID, "cached": hit, "rows": t.Len()}).Debug("refresh")
	return t, err
}

// Table returns the table from the last Refresh, nil if none loaded.
func (s *Session) Table() *dataset.Table { return s.table }

// LoadErr returns the error from the last Refresh.
func (s *Session) LoadErr() error { return s.loadErr }

// CacheStats reports ingestion cache hits and misses.
func (s *Session) CacheStats() (hits, misses int) { return s.cache.Stats() }

// SetMetricChoices restricts SetMetric to the given metrics. Nil allows any.
func (s *Session) SetMetricChoices(choices []string) {
	s.choices = append([]string(nil), choices...)
}

// MetricChoices returns the metrics SetMetric accepts, nil when unrestricted.
func (s *Session) MetricChoices() []string {
	return append([]string(nil), s.choices...)
}

// SetMetric changes the selected metric; empty restores the default. A metric
// outside the choices is rejected with an UnsupportedMetricError and the
// current metric is kept.
func (s *Session) SetMetric(metric string) error {
	metric = strings.TrimSpace(metric)
	if metric == "" {
		metric = analysis.DefaultMetric
	}
	m, err := analysis.CheckMetric(metric, s.choices)
	if err != nil {
		return err
	}
	s.metric = m
	return nil
}

// SetCountries narrows the selection. An empty list is a valid, empty selection.
func (s *Session) SetCountries(countries []string) {
	s.allCountries = false
	s.countries = s.countries[:0]
	for _, c := range countries {
		if c = strings.TrimSpace(c); c != "" {
			s.countries = append(s.countries, c)
		}
	}
}

// SelectAll selects every loaded country.
func (s *Session) SelectAll() {
	s.allCountries = true
	s.countries = nil
}

// Selection returns the effective metric and country subset.
func (s *Session) Selection() analysis.Selection {
	sel := analysis.Selection{Metric: s.metric}
	if s.allCountries {
		sel.Countries = s.table.Countries()
	} else {
		sel.Countries = append([]string{}, s.countries...)
	}
	return sel
}

// noTable reports a NoTableError carrying the last load failure while no
// table is available.
func (s *Session) noTable() error {
	if s.table != nil {
		return nil
	}
	return &analysis.NoTableError{Err: s.loadErr}
}

// Result aggregates the current selection, reusing the previous result while
// neither the table nor the selection changed.
func (s *Session) Result() (*analysis.Result, error) {
	if err := s.noTable(); err != nil {
		return nil, err
	}
	sel := s.Selection()
	key := fmt.Sprintf("%p|%s|%s", s.table, sel.Metric, strings.Join(sel.Countries, "\x00"))
	if key == s.resultKey && (s.result != nil || s.resultErr != nil) {
		return s.result, s.resultErr
	}
	s.result, s.resultErr = analysis.Aggregate(s.table, sel, s.opt)
	s.resultKey = key
	return s.result, s.resultErr
}

// Ranking ranks every loaded country; it ignores the selection.
func (s *Session) Ranking() (*analysis.Ranking, error) {
	if err := s.noTable(); err != nil {
		return nil, err
	}
	return analysis.RankCountries(s.table)
}

// Views evaluates the whole catalogue for the current selection.
func (s *Session) Views() []analysis.Outcome {
	sel := s.Selection()
	views := analysis.Catalogue(sel.Metric)
	if err := s.noTable(); err != nil {
		out := make([]analysis.Outcome, len(views))
		for i, v := range views {
			out[i] = analysis.Outcome{View: v, Err: err}
		}
		return out
	}
	return analysis.Evaluate(s.table, sel, views, s.opt)
}

// Available reports which views the current table can serve.
func (s *Session) Available() analysis.Availability {
	return analysis.Available(s.table, s.metric)
}

// Report bundles the evaluated views into a renderable report.
func (s *Session) Report(title string) *analysis.Report {
	return &analysis.Report{
		Title:     title,
		SessionID: s.ID,
		Selection: s.Selection(),
		Sources:   s.table.Sources(),
		Outcomes:  s.Views(),
	}
}
