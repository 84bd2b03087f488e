package state

import (
	"strings"
	"sync"

	"github.com/hughe/shiori-share/internal/shiori"
)

// TagCache holds tag suggestions, most recently used first.
type TagCache struct {
	mu    sync.RWMutex
	path  string
	tags  []string
	limit int
}

type tagsFile struct {
	Recent []string `toml:"recent"`
}

// NewTagCache loads the cache from path. An empty path keeps the cache in
// memory only.
func NewTagCache(path string) *TagCache {
	c := &TagCache{path: path, limit: shiori.MaxRecentTags}
	var raw tagsFile
	if loadFile(path, &raw) {
		c.tags = normalizeList(raw.Recent, c.limit)
	}
	return c
}

// RecentTags returns a copy of the cached tags.
func (c *TagCache) RecentTags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTags(c.tags)
}

// SetRecentTags replaces the list wholesale.
func (c *TagCache) SetRecentTags(names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = normalizeList(names, c.limit)
	return writeFile(c.path, tagsFile{Recent: c.tags})
}

// AddRecentTags moves names to the front of the list, keeping their order.
func (c *TagCache) AddRecentTags(names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = MergeRecent(c.tags, names, c.limit)
	return writeFile(c.path, tagsFile{Recent: c.tags})
}

// MergeRecent puts added in front of existing. A tag already present is
// moved rather than duplicated (case-insensitively) and the result is cut
// to limit entries.
func MergeRecent(existing, added []string, limit int) []string {
	tags := cloneTags(existing)
	for i := len(added) - 1; i >= 0; i-- {
		name := shiori.NormalizeTag(added[i])
		if name == "" {
			continue
		}
		tags = removeFold(tags, name)
		tags = append([]string{name}, tags...)
	}
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func normalizeList(names []string, limit int) []string {
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := shiori.NormalizeTag(raw)
		if name == "" || containsFold(out, name) {
			continue
		}
		out = append(out, name)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func removeFold(tags []string, name string) []string {
	out := tags[:0]
	for _, t := range tags {
		if !strings.EqualFold(t, name) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(tags []string, name string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	dup := make([]string, len(tags))
	copy(dup, tags)
	return dup
}
