package dataset

import (
	"strings"

	"github.com/apex/log"
)

// Cache holds the last Unified Table built from a set of sources. It is keyed
// by the ordered (country, content digest) pairs and is invalidated whenever
// any of them changes. A Cache is owned by one session and is not safe for
// concurrent use.
type Cache struct {
	opt    Options
	key    string
	valid  bool
	table  *Table
	err    error
	hits   int
	misses int
}

// NewCache returns an empty cache that loads with opt.
func NewCache(opt Options) *Cache {
	return &Cache{opt: opt}
}

// Load returns the table for sources, re-parsing only when their identity
// differs from the cached one. hit reports whether the cached table was reused.
// Sources that cannot be read are never cached so a retry re-reads them.
func (c *Cache) Load(sources []Source) (t *Table, hit bool, err error) {
	contents := make([]content, len(sources))
	readable := true
	for i, s := range sources {
		contents[i] = readContent(s)
		if contents[i].err != nil {
			readable = false
		}
	}
	key := cacheKey(contents)
	if readable && c.valid && key == c.key {
		c.hits++
		log.WithFields(log.Fields{"sources": len(sources), "hits": c.hits}).Debug("table cache hit")
		return c.table, true, c.err
	}
	c.misses++
	t, err = assemble(contents, c.opt)
	if readable {
		c.key, c.valid, c.table, c.err = key, true, t, err
	} else {
		c.Invalidate()
	}
	log.WithFields(log.Fields{"sources": len(sources), "misses": c.misses}).Debug("table cache miss")
	return t, false, err
}

// Invalidate drops the cached table.
func (c *Cache) Invalidate() {
	c.key, c.valid, c.table, c.err = "", false, nil, nil
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

func cacheKey(contents []content) string {
	parts := make([]string, len(contents))
	for i, c := range contents {
		parts[i] = c.identity()
	}
	return strings.Join(parts, "\x01")
}
