package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/google/go-cmp/cmp"

	"github.com/KaramelBytes/solardash-cli/internal/analysis"
	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

func init() {
	log.SetHandler(discard.Default)
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func newSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	sources := []dataset.Source{
		dataset.FileSource("Benin", writeFile(t, dir, "benin.csv", "GHI,Tamb\n10,25\n20,26\n30,27\n")),
		dataset.FileSource("Togo", writeFile(t, dir, "togo.csv", "GHI,Tamb\n5,24\n5,25\n")),
	}
	return New(sources, dataset.DefaultOptions(), analysis.DefaultOptions(), ""), dir
}

func TestRefreshUsesCacheUntilSourceChanges(t *testing.T) {
	s, dir := newSession(t)
	if s.ID == "" {
		t.Fatalf("session id not set")
	}
	t1, err := s.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	t2, err := s.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if t1 != t2 {
		t.Fatalf("unchanged sources should reuse the cached table")
	}
	writeFile(t, dir, "togo.csv", "GHI,Tamb\n50,24\n")
	t3, err := s.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if t3 == t1 || t3.Len() != 4 {
		t.Fatalf("changed source should re-parse, rows=%d", t3.Len())
	}
	if hits, misses := s.CacheStats(); hits != 1 || misses != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", hits, misses)
	}
}

func TestDefaultSelectionIsAllCountries(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	sel := s.Selection()
	if diff := cmp.Diff(analysis.Selection{Metric: "GHI", Countries: []string{"Benin", "Togo"}}, sel); diff != "" {
		t.Fatalf("selection (-want +got):\n%s", diff)
	}
	res, err := s.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Best == nil || res.Best.Country != "Benin" {
		t.Fatalf("best = %+v", res.Best)
	}
	again, _ := s.Result()
	if again != res {
		t.Fatalf("unchanged selection should reuse the result")
	}
	if err := s.SetMetric("Tamb"); err != nil {
		t.Fatalf("SetMetric: %v", err)
	}
	other, err := s.Result()
	if err != nil || other == res || other.Metric != "Tamb" {
		t.Fatalf("metric change should recompute: %v, %+v", err, other)
	}
}

func TestEmptySelectionIsRecoverable(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s.SetCountries(nil)
	_, err := s.Result()
	var es *analysis.EmptySelectionError
	if !errors.As(err, &es) {
		t.Fatalf("want EmptySelectionError, got %v", err)
	}
	for _, o := range s.Views() {
		if o.Err == nil || !analysis.Recoverable(o.Err) {
			t.Fatalf("%s: want recoverable error, got %v", o.View.ID, o.Err)
		}
	}
	s.SelectAll()
	if _, err := s.Result(); err != nil {
		t.Fatalf("after SelectAll: %v", err)
	}
}

func TestPartialLoadKeepsSessionUsable(t *testing.T) {
	dir := t.TempDir()
	sources := []dataset.Source{
		dataset.FileSource("Benin", writeFile(t, dir, "benin.csv", "GHI\n1\n2\n")),
		dataset.FileSource("Togo", filepath.Join(dir, "missing.csv")),
	}
	opt := dataset.DefaultOptions()
	opt.Policy = dataset.PolicyPartial
	s := New(sources, opt, analysis.DefaultOptions(), "GHI")
	tbl, err := s.Refresh()
	var sl *dataset.SourceLoadError
	if !errors.As(err, &sl) || sl.Country != "Togo" {
		t.Fatalf("want SourceLoadError for Togo, got %v", err)
	}
	if diff := cmp.Diff([]string{"Benin"}, tbl.Countries()); diff != "" {
		t.Fatalf("countries (-want +got):\n%s", diff)
	}
	if s.LoadErr() == nil {
		t.Fatalf("load error not retained")
	}
	r := s.Report("t")
	if len(r.Outcomes) != len(analysis.Catalogue("GHI")) || r.SessionID != s.ID {
		t.Fatalf("report = %+v", r)
	}
	if s.Available().Wind {
		t.Fatalf("no wind columns loaded")
	}
}

func TestFailedLoadReportsNoTable(t *testing.T) {
	dir := t.TempDir()
	sources := []dataset.Source{
		dataset.FileSource("Benin", writeFile(t, dir, "benin.csv", "GHI\n1\n2\n")),
		dataset.FileSource("Togo", writeFile(t, dir, "togo.csv", "GHI\n1,2,3\n")),
	}
	s := New(sources, dataset.DefaultOptions(), analysis.DefaultOptions(), "")
	for i := 0; i < 2; i++ {
		tbl, err := s.Refresh()
		if tbl != nil || err == nil {
			t.Fatalf("refresh %d: table=%v err=%v, want no table and an error", i, tbl, err)
		}
	}
	if hits, _ := s.CacheStats(); hits != 1 {
		t.Fatalf("second refresh should be a cache hit, hits=%d", hits)
	}

	_, err := s.Result()
	var nt *analysis.NoTableError
	if !errors.As(err, &nt) {
		t.Fatalf("Result: want NoTableError, got %v", err)
	}
	var sl *dataset.SourceLoadError
	if !errors.As(err, &sl) || sl.Country != "Togo" {
		t.Fatalf("Result should carry the load failure, got %v", err)
	}
	if got := analysis.Placeholder(err); got != "no table yet (could not load Togo)" {
		t.Fatalf("placeholder = %q", got)
	}
	if _, err := s.Ranking(); !errors.As(err, &nt) {
		t.Fatalf("Ranking: want NoTableError, got %v", err)
	}
	for _, o := range s.Views() {
		if !errors.As(o.Err, &nt) || o.Data != nil {
			t.Fatalf("view %s: err=%v data=%v", o.View.ID, o.Err, o.Data)
		}
	}
	if !analysis.Recoverable(err) {
		t.Fatalf("no-table errors should be recoverable")
	}
}

func TestSetMetricHonoursChoices(t *testing.T) {
	s, _ := newSession(t)
	s.SetMetricChoices(analysis.RankingMetrics)
	if err := s.SetMetric("dni"); err != nil {
		t.Fatalf("SetMetric(dni): %v", err)
	}
	err := s.SetMetric("RH")
	var um *analysis.UnsupportedMetricError
	if !errors.As(err, &um) {
		t.Fatalf("want UnsupportedMetricError, got %v", err)
	}
	if got := s.Selection().Metric; got != "DNI" {
		t.Fatalf("metric = %q, want DNI kept", got)
	}
}
