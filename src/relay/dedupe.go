package relay

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"status-relay/src/contracts"
)

// Deduper suppresses identical status requests arriving inside a time window.
// A nil *Deduper lets everything through.
type Deduper struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewDeduper returns a deduper with the given window, or nil when ttl is not positive.
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		return nil
	}
	return &Deduper{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Claim reports whether req is new inside the window and marks it as seen.
func (d *Deduper) Claim(req contracts.StatusRequest) bool {
	if d == nil {
		return true
	}
	return d.cache.Add(dedupeKey(req), struct{}{}, d.ttl) == nil
}

// Release forgets req so an identical request is forwarded again.
func (d *Deduper) Release(req contracts.StatusRequest) {
	if d == nil {
		return
	}
	d.cache.Delete(dedupeKey(req))
}

func dedupeKey(req contracts.StatusRequest) string {
	b := req.Build
	return fmt.Sprintf("%s|%s|%s|%d|%d", req.Routing.RepoID, b.Commit, b.Status, b.Number, b.ChangeCount)
}
