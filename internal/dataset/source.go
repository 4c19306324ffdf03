package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is one country's tabular input. Exactly one of Path or Data is used;
// Data wins when both are set.
type Source struct {
	Country string
	// Name is a display label (file name, upload name). Defaults to the base of Path.
	Name string
	Path string
	Data []byte
}

// FileSource returns a Source reading from an on-disk CSV or XLSX file.
func FileSource(country, path string) Source {
	return Source{Country: strings.TrimSpace(country), Name: filepath.Base(path), Path: path}
}

// ReadSource buffers r into a Source so the stream can be parsed again later.
func ReadSource(country, name string, r io.Reader) (Source, error) {
	country = strings.TrimSpace(country)
	b, err := io.ReadAll(r)
	if err != nil {
		return Source{}, &SourceLoadError{Country: country, Name: name, Err: fmt.Errorf("read stream: %w", err)}
	}
	return Source{Country: country, Name: name, Data: b}, nil
}

// ParseSourceSpec parses a "Country=path" pair as accepted on the command line.
func ParseSourceSpec(spec string) (Source, error) {
	country, path, ok := strings.Cut(spec, "=")
	country = strings.TrimSpace(country)
	path = strings.TrimSpace(path)
	if !ok || country == "" || path == "" {
		return Source{}, fmt.Errorf("invalid source %q (want Country=path)", spec)
	}
	return FileSource(country, path), nil
}

func (s Source) label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return "(stream)"
}

// content is a source whose bytes have been read and fingerprinted.
type content struct {
	src    Source
	data   []byte
	digest string
	err    error
}

func readContent(s Source) content {
	c := content{src: s}
	switch {
	case s.Data != nil:
		c.data = s.Data
	case s.Path != "":
		b, err := os.ReadFile(s.Path)
		if err != nil {
			c.err = &SourceLoadError{Country: s.Country, Name: s.label(), Err: fmt.Errorf("read file: %w", err)}
			return c
		}
		c.data = b
	default:
		c.err = &SourceLoadError{Country: s.Country, Name: s.label(), Err: fmt.Errorf("no path or data")}
		return c
	}
	sum := sha256.Sum256(c.data)
	c.digest = hex.EncodeToString(sum[:])
	return c
}

// identity is the cache key component for one source: country plus content digest.
func (c content) identity() string {
	return c.src.Country + "\x00" + c.digest
}
