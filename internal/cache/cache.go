// Package cache keeps short-lived owner summaries so card reads do not hit
// the user store on every request.
package cache

import (
	"time"

	"github.com/atinyakov/bcards/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// Summaries caches owner summaries by user id. A nil *Summaries is valid and
// caches nothing.
type Summaries struct {
	c *gocache.Cache
}

// New returns a cache whose entries expire after ttl.
func New(ttl time.Duration) *Summaries {
	return &Summaries{c: gocache.New(ttl, 2*ttl)}
}

// Get returns a copy of the cached summary for id.
func (s *Summaries) Get(id string) (*models.OwnerSummary, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.c.Get(id)
	if !ok {
		return nil, false
	}
	sum, ok := v.(models.OwnerSummary)
	if !ok {
		return nil, false
	}
	return &sum, true
}

// Set stores a copy of sum.
func (s *Summaries) Set(sum *models.OwnerSummary) {
	if s == nil || sum == nil {
		return
	}
	s.c.SetDefault(sum.ID, *sum)
}

// Delete evicts id; used when the user changes or disappears.
func (s *Summaries) Delete(id string) {
	if s == nil {
		return
	}
	s.c.Delete(id)
}
