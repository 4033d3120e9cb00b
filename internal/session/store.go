package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const shardCount = 16

// Session is one user's conversational state. It is only ever touched inside
// Store.Do, which serializes access at the user granularity.
type Session struct {
	UserID       string
	LastActivity time.Time

	// Constraints is the last-used constraint set, the anchor for follow-up
	// modifiers like "slower" and "more".
	Constraints *models.QueryConstraints

	history    []string // shown song IDs, most recent first, capped
	slots      map[string]slotAttribution
	historyCap int
}

// slotAttribution ties a delivered slot to its song and the context tokens of
// the query that produced it.
type slotAttribution struct {
	songID string
	tokens []string
}

// RecordResults appends shown songs to the history window and stores the
// slot attribution for each, tagged with the originating context tokens.
// Oldest history entries are evicted once the cap is reached, along with any
// slots that pointed at them.
func (s *Session) RecordResults(songIDs, slotIDs []string, contextTokens ...string) {
	s.history = append(append(make([]string, 0, len(songIDs)+len(s.history)), songIDs...), s.history...)
	if len(slotIDs) == len(songIDs) {
		for i, slot := range slotIDs {
			s.slots[slot] = slotAttribution{songID: songIDs[i], tokens: contextTokens}
		}
	}

	if len(s.history) > s.historyCap {
		s.history = s.history[:s.historyCap]

		kept := make(map[string]bool, len(s.history))
		for _, id := range s.history {
			kept[id] = true
		}
		for slot, a := range s.slots {
			if !kept[a.songID] {
				delete(s.slots, slot)
			}
		}
	}
}

// Resolve maps a feedback slot to the song it was attributed to.
func (s *Session) Resolve(slotID string) (string, bool) {
	a, ok := s.slots[slotID]
	return a.songID, ok
}

// SlotContext returns the context tokens recorded with a slot, nil when the
// slot is unknown or carried none.
func (s *Session) SlotContext(slotID string) []string {
	return append([]string(nil), s.slots[slotID].tokens...)
}

// History returns the shown-song window, most recent first.
func (s *Session) History() []string {
	return append([]string(nil), s.history...)
}

// HistorySet returns the exclusion set for ranking.
func (s *Session) HistorySet() map[string]bool {
	set := make(map[string]bool, len(s.history))
	for _, id := range s.history {
		set[id] = true
	}
	return set
}

type entry struct {
	mu      sync.Mutex
	session *Session
	// gone marks an entry that Sweep (or expiry replacement) removed from the
	// shard map. A caller that fetched the entry before the removal must not
	// write into it.
	gone bool
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Store keeps per-user sessions behind sharded locks so independent users
// never contend, while overlapping calls for the same user serialize.
type Store struct {
	shards     [shardCount]*shard
	ttl        time.Duration
	historyCap int
	logger     *logrus.Logger
}

func NewStore(ttl time.Duration, historyCap int, logger *logrus.Logger) *Store {
	st := &Store{ttl: ttl, historyCap: historyCap, logger: logger}
	for i := range st.shards {
		st.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return st
}

func (st *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return st.shards[h.Sum32()%shardCount]
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActivity) >= st.ttl
}

// Do runs fn with exclusive access to the user's session, creating a fresh
// one when none exists or the existing one has passed its TTL. An expired
// session is never handed back with stale constraints or attribution. The
// session's last-activity timestamp refreshes on every call.
func (st *Store) Do(userID string, fn func(*Session)) {
	sh := st.shardFor(userID)

	for {
		now := time.Now()

		sh.mu.Lock()
		e, ok := sh.entries[userID]
		if ok {
			e.mu.Lock()
			if e.gone || st.expired(e.session, now) {
				// Stale sessions are replaced wholesale, never revived.
				e.gone = true
				e.mu.Unlock()
				ok = false
			} else {
				e.mu.Unlock()
			}
		}
		if !ok {
			e = &entry{session: &Session{
				UserID:       userID,
				LastActivity: now,
				slots:        make(map[string]slotAttribution),
				historyCap:   st.historyCap,
			}}
			sh.entries[userID] = e
		}
		sh.mu.Unlock()

		e.mu.Lock()
		if e.gone {
			// Sweep removed the entry between the shard unlock and the
			// entry lock; writing into it would be lost. Start over.
			e.mu.Unlock()
			continue
		}
		e.session.LastActivity = time.Now()
		fn(e.session)
		e.mu.Unlock()
		return
	}
}

// Peek runs fn with the session only if a live one exists; it does not
// create or refresh anything. Used by feedback resolution, where an expired
// session must surface as unresolved rather than silently restart.
func (st *Store) Peek(userID string, fn func(*Session)) bool {
	sh := st.shardFor(userID)
	now := time.Now()

	sh.mu.Lock()
	e, ok := sh.entries[userID]
	sh.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone || st.expired(e.session, now) {
		return false
	}
	e.session.LastActivity = time.Now()
	fn(e.session)
	return true
}

// Len counts live sessions.
func (st *Store) Len() int {
	n := 0
	now := time.Now()
	for _, sh := range st.shards {
		sh.mu.Lock()
		for _, e := range sh.entries {
			e.mu.Lock()
			if !st.expired(e.session, now) {
				n++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return n
}

// Sweep drops expired sessions. TTL is already enforced on access; the sweep
// only bounds memory.
func (st *Store) Sweep() int {
	removed := 0
	now := time.Now()
	for _, sh := range st.shards {
		sh.mu.Lock()
		for userID, e := range sh.entries {
			e.mu.Lock()
			if st.expired(e.session, now) {
				e.gone = true
				delete(sh.entries, userID)
				removed++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		st.logger.WithField("removed", removed).Debug("Swept expired sessions")
	}
	return removed
}

// StartSweeper runs periodic sweeps until the context is cancelled.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}
