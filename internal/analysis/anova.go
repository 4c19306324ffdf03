package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Group is one sample in a one-way ANOVA.
type Group struct {
	Name   string
	Values []float64
}

// ANOVAResult is the outcome of a one-way analysis of variance.
type ANOVAResult struct {
	Metric      string
	Groups      []string
	F           float64
	P           float64
	DFBetween   int
	DFWithin    int
	Alpha       float64
	Significant bool
}

// Verdict renders the significance policy as text.
func (a *ANOVAResult) Verdict() string {
	if a == nil {
		return "insufficient data"
	}
	if a.Significant {
		return "statistically significant difference"
	}
	return "not significant"
}

// OneWayANOVA tests whether the groups share the same mean. Groups without
// values are ignored; fewer than two remaining groups, or no within-group
// degrees of freedom, yield an InsufficientDataError.
func OneWayANOVA(groups []Group, alpha float64) (*ANOVAResult, error) {
	var used []Group
	n := 0
	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		used = append(used, g)
		n += len(g.Values)
	}
	k := len(used)
	if k < 2 {
		return nil, &InsufficientDataError{Test: "ANOVA", Reason: fmt.Sprintf("need at least 2 groups with data, got %d", k)}
	}
	dfb, dfw := k-1, n-k
	if dfw <= 0 {
		return nil, &InsufficientDataError{Test: "ANOVA", Reason: "need more observations than groups"}
	}

	var grand float64
	for _, g := range used {
		for _, x := range g.Values {
			grand += x
		}
	}
	grand /= float64(n)

	var ssb, ssw float64
	res := &ANOVAResult{DFBetween: dfb, DFWithin: dfw, Alpha: alpha}
	for _, g := range used {
		res.Groups = append(res.Groups, g.Name)
		var m float64
		for _, x := range g.Values {
			m += x
		}
		m /= float64(len(g.Values))
		d := m - grand
		ssb += float64(len(g.Values)) * d * d
		for _, x := range g.Values {
			e := x - m
			ssw += e * e
		}
	}
	msb := ssb / float64(dfb)
	msw := ssw / float64(dfw)

	switch {
	case msw == 0 && msb == 0:
		res.F, res.P = math.NaN(), 1
	case msw == 0:
		res.F, res.P = math.Inf(1), 0
	default:
		res.F = msb / msw
		res.P = fTestPValue(res.F, dfb, dfw)
	}
	res.Significant = res.P < alpha
	return res, nil
}

// fTestPValue is the upper-tail probability of the F distribution.
func fTestPValue(f float64, df1, df2 int) float64 {
	fd := distuv.F{D1: float64(df1), D2: float64(df2)}
	p := 1 - fd.CDF(f)
	if p < 0 {
		return 0
	}
	return p
}
