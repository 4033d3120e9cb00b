package feedback

import (
	"time"

	"github.com/selahbot/backend/internal/catalog"
	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/internal/session"
	"github.com/sirupsen/logrus"
)

// EventSink receives applied feedback events for storage. Fire-and-forget
// from the processor's perspective.
type EventSink interface {
	LogFeedback(event models.FeedbackEvent)
}

// Persister pushes the adjusted familiarity score to the catalog store.
// Best effort; the in-memory index is authoritative.
type Persister interface {
	PersistFamiliarity(songID string, familiarity int)
}

// Result is the outcome of one applied feedback submission.
type Result struct {
	SongID      string
	Signal      models.Signal
	Familiarity int
}

// Processor resolves feedback slots to songs and applies the bounded score
// adjustment. Each call affects exactly one song exactly once; deduplication
// of repeated submissions is the caller's concern.
type Processor struct {
	cfg       config.EngineConfig
	index     *catalog.Index
	sessions  *session.Store
	sink      EventSink
	persister Persister
	logger    *logrus.Logger
}

func NewProcessor(cfg config.EngineConfig, index *catalog.Index, sessions *session.Store, sink EventSink, persister Persister, logger *logrus.Logger) *Processor {
	return &Processor{
		cfg:       cfg,
		index:     index,
		sessions:  sessions,
		sink:      sink,
		persister: persister,
		logger:    logger,
	}
}

func (p *Processor) delta(signal models.Signal) int {
	switch signal {
	case models.SignalPositive:
		return p.cfg.PositiveDelta
	case models.SignalNegative:
		return p.cfg.NegativeDelta
	case models.SignalUsed:
		return p.cfg.UsedDelta
	}
	return 0
}

// Apply resolves slotID through the user's session attribution map and
// adjusts the target song's familiarity. An unknown or expired slot returns
// ErrUnresolvedAttribution so the surrounding layer can ask the user to
// clarify.
func (p *Processor) Apply(userID, slotID string, signal models.Signal) (Result, error) {
	if !signal.Valid() {
		return Result{}, models.ErrInvalidSignal
	}

	var songID string
	var contextTokens []string
	resolved := false
	live := p.sessions.Peek(userID, func(s *session.Session) {
		songID, resolved = s.Resolve(slotID)
		if resolved {
			contextTokens = s.SlotContext(slotID)
		}
	})
	if !live || !resolved {
		p.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"slot_id": slotID,
		}).Warn("Feedback slot could not be attributed")
		return Result{}, models.ErrUnresolvedAttribution
	}

	delta := p.delta(signal)
	familiarity, err := p.index.AdjustFamiliarity(songID, delta)
	if err != nil {
		return Result{}, err
	}

	if p.persister != nil {
		p.persister.PersistFamiliarity(songID, familiarity)
	}

	event := models.FeedbackEvent{
		UserID:        userID,
		SongID:        songID,
		Signal:        signal,
		Delta:         delta,
		Timestamp:     time.Now(),
		ContextTokens: contextTokens,
	}
	if p.sink != nil {
		go p.sink.LogFeedback(event)
	}

	p.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"song_id":     songID,
		"signal":      signal,
		"familiarity": familiarity,
	}).Info("Feedback applied")

	return Result{SongID: songID, Signal: signal, Familiarity: familiarity}, nil
}
