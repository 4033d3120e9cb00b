package nlp

import "github.com/selahbot/backend/internal/models"

// Request models (Ollama-compatible chat API)
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response models
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// ParseResult is the structured constraint shape the model is asked to emit.
type ParseResult struct {
	Themes        []string `json:"themes"`
	BPMMin        *int     `json:"bpm_min"`
	BPMMax        *int     `json:"bpm_max"`
	KeyPreference string   `json:"key_preference"`
	VocalLead     string   `json:"vocal_lead"`
	Intent        string   `json:"intent"`
	ExcludeRecent bool     `json:"exclude_recent"`
	Confidence    float64  `json:"confidence"`
}

// Constraints converts a parse result to the engine's constraint shape.
// Invalid values degrade to unconstrained fields rather than errors.
func (r *ParseResult) Constraints() models.QueryConstraints {
	var c models.QueryConstraints

	if r.BPMMin != nil || r.BPMMax != nil {
		band := models.TempoBand{Min: models.MinBPM, Max: models.MaxBPM}
		if r.BPMMin != nil {
			band.Min = *r.BPMMin
		}
		if r.BPMMax != nil {
			band.Max = *r.BPMMax
		}
		band = band.Clamp()
		c.Tempo = &band
		if band.Min >= 110 {
			c.FastSignal = true
		}
	}

	switch r.VocalLead {
	case "male":
		c.Lead = models.LeadMale
	case "female":
		c.Lead = models.LeadFemale
	}

	c.Key = r.KeyPreference
	c.Themes = append([]string(nil), r.Themes...)
	c.More = r.Intent == "more"
	return c
}
