// Package lobby aggregates the lobby records gathered from every backend
// into one TTL-bounded registry, so stale entries age out on their own when
// a backend stops reporting them.
package lobby

import (
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
)

// defaultTTL is how long an entry survives without a refresh. Both backends
// refresh well inside this window when the entry is still alive.
const defaultTTL = 45 * time.Second

// Entry is one lobby row, normalized across backends.
type Entry struct {
	Source  string // "bz98r" or "bzcc"
	Key     string // backend-scoped identity
	Name    string
	Map     string
	Owner   string
	Players string
	Status  string // raw status line, when the backend only gives us that
	Seen    time.Time
}

// Registry is a TTL cache of lobby entries keyed by "<source>/<key>".
type Registry struct {
	store *cache.Cache
}

func NewRegistry() *Registry {
	return &Registry{
		store: cache.New(defaultTTL, time.Minute),
	}
}

func entryKey(source, key string) string {
	return source + "/" + key
}

// Upsert stores or refreshes one entry, resetting its TTL.
func (r *Registry) Upsert(e Entry) {
	if e.Seen.IsZero() {
		e.Seen = time.Now()
	}
	r.store.Set(entryKey(e.Source, e.Key), e, cache.DefaultExpiration)
}

// Remove deletes an entry ahead of its TTL, typically on an explicit removal
// message from the backend.
func (r *Registry) Remove(source, key string) {
	r.store.Delete(entryKey(source, key))
}

// RegisterPong records a status-bearing pong from a game server. The status
// line is kept verbatim; the address doubles as the entry key.
func (r *Registry) RegisterPong(source, addr, status string) {
	r.Upsert(Entry{
		Source: source,
		Key:    addr,
		Name:   fmt.Sprintf("server %s", addr),
		Status: status,
	})
}

// Snapshot returns the live entries ordered by source, then name, then key.
func (r *Registry) Snapshot() []Entry {
	items := r.store.Items()
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		if e, ok := item.Object.(Entry); ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	return r.store.ItemCount()
}
