// backend/internal/api/handlers/recommend.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/selahbot/backend/internal/catalog"
	"github.com/selahbot/backend/internal/engine"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type RecommendHandler struct {
	engine *engine.Engine
	index  *catalog.Index
	logger *logrus.Logger
}

func NewRecommendHandler(eng *engine.Engine, index *catalog.Index, logger *logrus.Logger) *RecommendHandler {
	return &RecommendHandler{
		engine: eng,
		index:  index,
		logger: logger,
	}
}

// HandleRecommend processes recommendation requests
func (h *RecommendHandler) HandleRecommend(c *gin.Context) {
	startTime := time.Now()

	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid recommend request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Text cannot be empty", nil)
		return
	}
	if len(text) > 2000 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Text too long (max 2000 characters)", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	outcome, err := h.engine.HandleQuery(ctx, req.UserID, text)
	if err != nil {
		h.logger.WithError(err).Error("Recommendation failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Recommendation failed", err)
		return
	}

	response := models.RecommendResponse{
		Status:       outcome.Status,
		Results:      make([]models.RecommendedSong, 0, len(outcome.Results)),
		Relaxed:      outcome.Relaxed,
		ResponseTime: int(time.Since(startTime).Milliseconds()),
	}
	for _, rec := range outcome.Results {
		response.Results = append(response.Results, models.RecommendedSong{
			SlotID:       rec.SlotID,
			Title:        rec.Song.Title,
			Artist:       rec.Song.Artist,
			Key:          rec.Song.PreferredKey(outcome.Constraints.Lead),
			BPM:          rec.Song.BPM,
			Tags:         rec.Song.Tags,
			Familiarity:  rec.Song.Familiarity,
			ResourceLink: rec.Song.ResourceLink,
		})
	}
	response.Total = len(response.Results)

	if outcome.Status == models.QueryStatusEmptyCatalog {
		utils.SuccessResponse(c, http.StatusOK, "Catalog is empty", response)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recommendations ready", response)
}

// HandleFeedback processes feedback submissions
func (h *RecommendHandler) HandleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid feedback request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result, err := h.engine.HandleFeedback(c.Request.Context(), req.UserID, req.SlotID, models.Signal(req.Signal))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidSignal):
			utils.ErrorResponse(c, http.StatusBadRequest, "Unknown feedback signal", err)
		case errors.Is(err, models.ErrUnresolvedAttribution):
			utils.ErrorResponse(c, http.StatusGone, "Slot expired or unknown", err)
		case errors.Is(err, models.ErrSongNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Song no longer in catalog", err)
		default:
			h.logger.WithError(err).Error("Feedback failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Feedback failed", err)
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Feedback applied", models.FeedbackResponse{
		SongID:      result.SongID,
		Signal:      result.Signal,
		Familiarity: result.Familiarity,
	})
}

// HandleThemes lists the distinct thematic tags across the active catalog.
func (h *RecommendHandler) HandleThemes(c *gin.Context) {
	seen := map[string]bool{}
	var themes []string
	for _, song := range h.index.Songs() {
		for _, tag := range song.Tags {
			if !seen[tag] {
				seen[tag] = true
				themes = append(themes, tag)
			}
		}
	}
	sort.Strings(themes)

	utils.SuccessResponse(c, http.StatusOK, "Themes", gin.H{
		"themes": themes,
		"total":  len(themes),
	})
}
