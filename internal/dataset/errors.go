package dataset

import "fmt"

// SourceLoadError reports a country's input that could not be read or parsed.
type SourceLoadError struct {
	Country string
	Name    string
	Err     error
}

func (e *SourceLoadError) Error() string {
	if e == nil {
		return "source load failed"
	}
	if e.Name != "" {
		return fmt.Sprintf("load %s (%s): %v", e.Country, e.Name, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Country, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }
