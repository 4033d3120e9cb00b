package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/selahbot/backend/internal/catalog"
	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/feedback"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/internal/nlp"
	"github.com/selahbot/backend/internal/parser"
	"github.com/selahbot/backend/internal/ranking"
	"github.com/selahbot/backend/internal/session"
	"github.com/selahbot/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// QueryLogger receives interaction records for storage. Fire-and-forget.
type QueryLogger interface {
	LogQuery(entry models.MessageLog)
}

// ParseCache caches NLP parse results so a slow collaborator is consulted at
// most once per distinct utterance. May be nil.
type ParseCache interface {
	GetParse(ctx context.Context, text string) (models.QueryConstraints, bool)
	PutParse(ctx context.Context, text string, c models.QueryConstraints)
}

// Engine is the facade external collaborators call. It owns no state beyond
// wiring; every failure either recovers to a deterministic fallback or
// surfaces as a typed outcome.
type Engine struct {
	cfg      config.EngineConfig
	index    *catalog.Index
	parser   *parser.Parser
	nlp      *nlp.Service
	ranker   *ranking.Ranker
	sessions *session.Store
	feedback *feedback.Processor
	cache    ParseCache
	queryLog QueryLogger
	logger   *logrus.Logger
}

// Options carries the optional collaborators.
type Options struct {
	NLP      *nlp.Service
	Cache    ParseCache
	QueryLog QueryLogger
	Sink     feedback.EventSink
	Persist  feedback.Persister
}

func New(cfg config.EngineConfig, index *catalog.Index, sessions *session.Store, opts Options, logger *logrus.Logger) *Engine {
	p := parser.New(cfg, logger)
	return &Engine{
		cfg:      cfg,
		index:    index,
		parser:   p,
		nlp:      opts.NLP,
		ranker:   ranking.New(cfg, logger),
		sessions: sessions,
		feedback: feedback.NewProcessor(cfg, index, sessions, opts.Sink, opts.Persist, logger),
		cache:    opts.Cache,
		queryLog: opts.QueryLog,
		logger:   logger,
	}
}

// RefreshCatalog rebuilds the index from the catalog store and refreshes the
// parser's tag vocabulary from the loaded songs.
func (e *Engine) RefreshCatalog(repo models.SongRepository) error {
	if err := e.index.LoadFromStore(repo); err != nil {
		return err
	}
	e.refreshVocabulary()
	return nil
}

// LoadCatalog replaces the index contents directly. Used by tests and by
// callers that already hold the rows.
func (e *Engine) LoadCatalog(songs []models.Song) {
	e.index.Load(songs)
	e.refreshVocabulary()
}

func (e *Engine) refreshVocabulary() {
	seen := map[string]bool{}
	var tags []string
	for _, s := range e.index.Songs() {
		for _, t := range append(append([]string(nil), s.Tags...), s.MusicalTags...) {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	e.parser.SetVocabulary(tags)
}

// HandleQuery parses text against the user's session context, ranks the
// catalog, records attribution, and returns the ordered results. An empty
// catalog is a distinct status, not an error.
func (e *Engine) HandleQuery(ctx context.Context, userID, text string) (models.QueryOutcome, error) {
	start := time.Now()

	if e.index.Len() == 0 {
		e.logger.WithField("user_id", userID).Warn("Query against empty catalog")
		return models.QueryOutcome{Status: models.QueryStatusEmptyCatalog}, nil
	}

	var outcome models.QueryOutcome
	parsedBy := "rules"

	e.sessions.Do(userID, func(s *session.Session) {
		constraints, by := e.parse(ctx, text, s.Constraints)
		parsedBy = by

		excludeIDs := s.HistorySet()

		results, relaxed := e.ranker.Rank(constraints, e.index.Songs(), excludeIDs)

		songIDs := make([]string, len(results))
		slotIDs := make([]string, len(results))
		recs := make([]models.Recommendation, len(results))
		for i, song := range results {
			songIDs[i] = song.ID
			slotIDs[i] = utils.GenerateSlotID()
			recs[i] = models.Recommendation{SlotID: slotIDs[i], Song: song}
		}

		s.RecordResults(songIDs, slotIDs, contextTokens(constraints)...)
		kept := constraints.Clone()
		s.Constraints = &kept

		outcome = models.QueryOutcome{
			Status:      models.QueryStatusOK,
			Results:     recs,
			Constraints: constraints,
			Relaxed:     relaxed,
		}
	})

	if e.queryLog != nil {
		messageType := "search"
		if outcome.Constraints.More {
			messageType = "more"
		}
		entry := models.MessageLog{
			UserID:         userID,
			MessageType:    messageType,
			MessageContent: text,
			ResultsCount:   len(outcome.Results),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			ParsedBy:       parsedBy,
			QueryTimestamp: start,
		}
		go e.queryLog.LogQuery(entry)
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"results":   len(outcome.Results),
		"relaxed":   outcome.Relaxed,
		"parsed_by": parsedBy,
	}).Info("Query handled")

	return outcome, nil
}

// contextTokens flattens the constraints a batch was delivered under into the
// tokens recorded with each slot, so feedback on that slot carries the query
// context it answered.
func contextTokens(c models.QueryConstraints) []string {
	var tokens []string
	tokens = append(tokens, c.Themes...)
	if c.Tempo != nil {
		tokens = append(tokens, fmt.Sprintf("tempo:%d-%d", c.Tempo.Min, c.Tempo.Max))
	}
	if c.Key != "" {
		tokens = append(tokens, "key:"+c.Key)
	}
	if c.Lead != models.LeadUnspecified {
		tokens = append(tokens, "lead:"+string(c.Lead))
	}
	return tokens
}

// parse tries the cached NLP result, then the live NLP collaborator, then
// the deterministic rule path. The fallback is unconditional: no partial
// application of a low-confidence or failed external parse.
func (e *Engine) parse(ctx context.Context, text string, prior *models.QueryConstraints) (models.QueryConstraints, string) {
	if e.cache != nil {
		if c, ok := e.cache.GetParse(ctx, text); ok {
			return e.mergeFollowUp(c, prior), "nlp"
		}
	}
	if c, ok := e.nlp.ParseConstraints(ctx, text); ok {
		if e.cache != nil {
			e.cache.PutParse(ctx, text, c)
		}
		return e.mergeFollowUp(c, prior), "nlp"
	}
	return e.parser.Parse(text, prior), "rules"
}

// mergeFollowUp lets an NLP-parsed "more" inherit the prior search context,
// mirroring what the rule parser does for bare follow-ups.
func (e *Engine) mergeFollowUp(c models.QueryConstraints, prior *models.QueryConstraints) models.QueryConstraints {
	if !c.More || prior == nil {
		return c
	}
	if len(c.Themes) == 0 {
		c.Themes = append([]string(nil), prior.Themes...)
	}
	if c.Lead == models.LeadUnspecified {
		c.Lead = prior.Lead
	}
	if c.Key == "" {
		c.Key = prior.Key
	}
	if c.Tempo == nil && prior.Tempo != nil {
		band := *prior.Tempo
		c.Tempo = &band
	}
	return c
}

// HandleFeedback applies one feedback submission to exactly one song.
func (e *Engine) HandleFeedback(ctx context.Context, userID, slotID string, signal models.Signal) (feedback.Result, error) {
	return e.feedback.Apply(userID, slotID, signal)
}
