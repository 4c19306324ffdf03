package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// RankingMetrics are the solar/met metrics compared across countries; the first
// one orders the table.
var RankingMetrics = []string{"GHI", "DNI", "DHI", "Tamb"}

// RankingRow holds one country's rounded means, aligned with Ranking.Metrics.
type RankingRow struct {
	Country string
	Means   []float64
}

// Ranking is the country comparison over the full, unfiltered table.
type Ranking struct {
	Metrics []string
	Rows    []RankingRow
	// Leaders maps each metric to the country with the highest mean.
	Leaders map[string]string
}

// RankCountries computes per-country means of RankingMetrics over every row of
// t, rounded to one decimal place and sorted descending by the first metric.
// It ignores any user selection.
func RankCountries(t *dataset.Table) (*Ranking, error) {
	if missing := dataset.MissingFields(t, RankingMetrics...); len(missing) > 0 {
		return nil, &MissingColumnError{View: "ranking", Fields: missing}
	}
	metrics := append([]string(nil), RankingMetrics...)
	countries := t.Countries()
	idx := make(map[string]int, len(countries))
	sums := make([][]float64, len(countries))
	counts := make([][]int, len(countries))
	for i, c := range countries {
		idx[c] = i
		sums[i] = make([]float64, len(metrics))
		counts[i] = make([]int, len(metrics))
	}
	for _, r := range t.Rows() {
		i := idx[r.Country()]
		for j, m := range metrics {
			if x, ok := r.Float(m); ok {
				sums[i][j] += x
				counts[i][j]++
			}
		}
	}

	rk := &Ranking{Metrics: metrics, Leaders: map[string]string{}}
	for i, c := range countries {
		row := RankingRow{Country: c, Means: make([]float64, len(metrics))}
		for j := range metrics {
			row.Means[j] = math.NaN()
			if counts[i][j] > 0 {
				row.Means[j] = round1(sums[i][j] / float64(counts[i][j]))
			}
		}
		rk.Rows = append(rk.Rows, row)
	}
	sort.SliceStable(rk.Rows, func(a, b int) bool {
		return descNaNLast(rk.Rows[a].Means[0], rk.Rows[b].Means[0])
	})
	for j, m := range metrics {
		best := math.NaN()
		for _, row := range rk.Rows {
			if v := row.Means[j]; !math.IsNaN(v) && (math.IsNaN(best) || v > best) {
				best = v
				rk.Leaders[m] = row.Country
			}
		}
	}
	return rk, nil
}

// round1 rounds half away from zero, so an exact x.x5 mean goes up where a
// banker's rounding would go to the even digit.
func round1(x float64) float64 {
	r, err := stats.Round(x, 1)
	if err != nil {
		return math.NaN()
	}
	return r
}
