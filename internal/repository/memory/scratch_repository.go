package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ai-assistant-be/pkg/agent/state"
)

// ScratchRepository keeps the hot DialogueState for active conversations in
// memory. The durable AssistantSession row is the fallback when an entry has
// expired.
type ScratchRepository struct {
	cache *cache.Cache
}

func NewScratchRepository() *ScratchRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ScratchRepository{
		cache: c,
	}
}

func (r *ScratchRepository) Save(st *state.DialogueState) {
	r.cache.Set(st.SessionID, st, cache.DefaultExpiration)
}

func (r *ScratchRepository) Get(sessionID string) (*state.DialogueState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*state.DialogueState), true
	}
	return nil, false
}

func (r *ScratchRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
