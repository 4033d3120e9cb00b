package repository

import (
	"context"
	"time"

	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// FamiliarityPersister writes familiarity adjustments back to the catalog
// store. Persistence is best effort: the in-memory catalog is authoritative
// for the running process, and writes retry in the background so a flaky
// database never blocks a feedback reply.
type FamiliarityPersister struct {
	songs  models.SongRepository
	retry  RetryConfig
	logger *logrus.Logger
}

func NewFamiliarityPersister(songs models.SongRepository, logger *logrus.Logger) *FamiliarityPersister {
	return &FamiliarityPersister{
		songs:  songs,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

func (p *FamiliarityPersister) PersistFamiliarity(songID string, familiarity int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		err := retryOperation(ctx, p.retry, p.logger, "update familiarity", func() error {
			return p.songs.UpdateFamiliarity(songID, familiarity)
		})
		if err != nil {
			p.logger.WithError(err).WithField("song_id", songID).
				Error("Familiarity write abandoned, in-memory value stands")
		}
	}()
}

// FeedbackSink appends feedback events to the audit log.
type FeedbackSink struct {
	entries models.FeedbackLogRepository
	usage   models.SongUsageRepository
	logger  *logrus.Logger
}

func NewFeedbackSink(entries models.FeedbackLogRepository, usage models.SongUsageRepository, logger *logrus.Logger) *FeedbackSink {
	return &FeedbackSink{
		entries: entries,
		usage:   usage,
		logger:  logger,
	}
}

func (s *FeedbackSink) LogFeedback(event models.FeedbackEvent) {
	entry := models.FeedbackLog{
		UserID:        event.UserID,
		SongID:        event.SongID,
		Signal:        string(event.Signal),
		Delta:         event.Delta,
		ContextTokens: models.StringArray(event.ContextTokens),
		AppliedAt:     event.Timestamp,
	}
	if err := s.entries.Create(&entry); err != nil {
		s.logger.WithError(err).WithField("song_id", event.SongID).
			Warn("Failed to log feedback event")
	}

	// A "used" signal doubles as a usage record.
	if event.Signal == models.SignalUsed {
		if err := s.usage.Record(event.SongID, "worship", ""); err != nil {
			s.logger.WithError(err).WithField("song_id", event.SongID).
				Warn("Failed to record song usage")
		}
	}
}

// QueryLog appends interaction records.
type QueryLog struct {
	messages models.MessageLogRepository
	logger   *logrus.Logger
}

func NewQueryLog(messages models.MessageLogRepository, logger *logrus.Logger) *QueryLog {
	return &QueryLog{messages: messages, logger: logger}
}

func (q *QueryLog) LogQuery(entry models.MessageLog) {
	if err := q.messages.Create(&entry); err != nil {
		q.logger.WithError(err).WithField("user_id", entry.UserID).
			Warn("Failed to log interaction")
	}
}
