package models

type RecommendRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

type RecommendResponse struct {
	Status       QueryStatus       `json:"status"`
	Results      []RecommendedSong `json:"results"`
	Total        int               `json:"total"`
	Relaxed      []string          `json:"relaxed,omitempty"`
	ResponseTime int               `json:"response_time_ms"`
}

type RecommendedSong struct {
	SlotID       string   `json:"slot_id"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Key          string   `json:"key"`
	BPM          int      `json:"bpm"`
	Tags         []string `json:"tags"`
	Familiarity  int      `json:"familiarity"`
	ResourceLink string   `json:"resource_link,omitempty"`
}

type FeedbackRequest struct {
	UserID string `json:"user_id" binding:"required"`
	SlotID string `json:"slot_id" binding:"required"`
	Signal string `json:"signal" binding:"required"`
}

type FeedbackResponse struct {
	SongID      string `json:"song_id"`
	Signal      Signal `json:"signal"`
	Familiarity int    `json:"familiarity"`
}
