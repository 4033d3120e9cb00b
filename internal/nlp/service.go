package nlp

import (
	"context"
	"time"

	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Service gates the external parser behind the confidence threshold. A nil
// *Service is valid and means "no NLP collaborator configured".
type Service struct {
	client              *Client
	confidenceThreshold float64
	timeout             time.Duration
	logger              *logrus.Logger
}

func NewService(client *Client, confidenceThreshold float64, timeout time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		client:              client,
		confidenceThreshold: confidenceThreshold,
		timeout:             timeout,
		logger:              logger,
	}
}

// ParseConstraints returns structured constraints when the collaborator
// answers in time with enough confidence. ok=false means the caller must use
// the rule path; a low-confidence result is discarded whole, never partially
// applied.
func (s *Service) ParseConstraints(ctx context.Context, text string) (models.QueryConstraints, bool) {
	if s == nil || s.client == nil {
		return models.QueryConstraints{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.client.Parse(ctx, text)
	if err != nil {
		s.logger.WithError(err).Debug("NLP parse unavailable, using rule path")
		return models.QueryConstraints{}, false
	}

	if result.Confidence < s.confidenceThreshold {
		s.logger.WithFields(logrus.Fields{
			"confidence": result.Confidence,
			"threshold":  s.confidenceThreshold,
		}).Debug("NLP confidence below threshold, using rule path")
		return models.QueryConstraints{}, false
	}

	return result.Constraints(), true
}
