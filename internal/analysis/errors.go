package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/solardash-cli/internal/dataset"
)

// MissingColumnError indicates a view or statistic whose required fields are
// absent from the table. It means "skip this view", not failure.
type MissingColumnError struct {
	View   string
	Fields []string
}

func (e *MissingColumnError) Error() string {
	if e == nil {
		return "column not found"
	}
	cols := strings.Join(e.Fields, ", ")
	if e.View != "" {
		return fmt.Sprintf("%s: column not found: %s", e.View, cols)
	}
	return fmt.Sprintf("column not found: %s", cols)
}

// EmptySelectionError indicates an aggregation requested with zero countries.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string { return "no countries selected" }

// InsufficientDataError indicates a statistical test whose minimum sample
// requirement is not met.
type InsufficientDataError struct {
	Test   string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e == nil {
		return "insufficient data"
	}
	if e.Reason != "" {
		return fmt.Sprintf("insufficient data for %s: %s", e.Test, e.Reason)
	}
	return fmt.Sprintf("insufficient data for %s", e.Test)
}

// NoTableError means there is no Unified Table to compute from yet. Err holds
// the load failure that left the table empty, if any.
type NoTableError struct {
	Err error
}

func (e *NoTableError) Error() string {
	if e == nil || e.Err == nil {
		return "no table yet"
	}
	return "no table yet: " + e.Err.Error()
}

func (e *NoTableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnsupportedMetricError indicates a metric outside the configured choices.
type UnsupportedMetricError struct {
	Metric  string
	Choices []string
}

func (e *UnsupportedMetricError) Error() string {
	return fmt.Sprintf("metric %q is not offered (choose %s)", e.Metric, strings.Join(e.Choices, ", "))
}

// CheckMetric matches metric case-insensitively against choices and returns
// the configured spelling. An empty choice list accepts any metric.
func CheckMetric(metric string, choices []string) (string, error) {
	metric = strings.TrimSpace(metric)
	if len(choices) == 0 {
		return metric, nil
	}
	for _, c := range choices {
		if strings.EqualFold(c, metric) {
			return c, nil
		}
	}
	return "", &UnsupportedMetricError{Metric: metric, Choices: choices}
}

// Recoverable reports whether err is one of the placeholder-worthy errors the
// presentation layer renders instead of failing.
func Recoverable(err error) bool {
	var (
		mc *MissingColumnError
		es *EmptySelectionError
		id *InsufficientDataError
		sl *dataset.SourceLoadError
		nt *NoTableError
	)
	return errors.As(err, &mc) || errors.As(err, &es) || errors.As(err, &id) || errors.As(err, &sl) || errors.As(err, &nt)
}

// Placeholder returns the short text shown in place of a view that could not be computed.
func Placeholder(err error) string {
	var (
		mc *MissingColumnError
		es *EmptySelectionError
		id *InsufficientDataError
		sl *dataset.SourceLoadError
		nt *NoTableError
		um *UnsupportedMetricError
	)
	switch {
	case errors.As(err, &nt):
		if errors.As(nt.Err, &sl) {
			return "no table yet (could not load " + sl.Country + ")"
		}
		return "no table yet"
	case errors.As(err, &um):
		return um.Error()
	case errors.As(err, &es):
		return "Please select at least one country"
	case errors.As(err, &mc):
		return "column not found: " + strings.Join(mc.Fields, ", ")
	case errors.As(err, &id):
		return "insufficient data"
	case errors.As(err, &sl):
		return "could not load " + sl.Country
	case err != nil:
		return err.Error()
	default:
		return ""
	}
}
