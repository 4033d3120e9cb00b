package models

import (
	"time"
)

// Familiarity score bounds. Scores are clamped to this range no matter how
// much feedback a song accumulates.
const (
	MinFamiliarity     = 1
	MaxFamiliarity     = 10
	DefaultFamiliarity = 5
)

// BPM bounds for the whole catalog; tempo bands are clamped to this range.
const (
	MinBPM = 40
	MaxBPM = 200
)

// VocalLead is a parsed vocal-lead preference.
type VocalLead string

const (
	LeadUnspecified VocalLead = ""
	LeadMale        VocalLead = "male"
	LeadFemale      VocalLead = "female"
)

// Song is one catalog entry. The immutable metadata comes from the catalog
// store; Familiarity is the only field adjusted at runtime, and only through
// the catalog index.
type Song struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	OriginalKey  string   `json:"original_key"`
	BoyKey       string   `json:"boy_key,omitempty"`
	GirlKey      string   `json:"girl_key,omitempty"`
	BPM          int      `json:"bpm"`
	Tags         []string `json:"tags"`
	MusicalTags  []string `json:"musical_tags,omitempty"`
	Familiarity  int      `json:"familiarity"`
	ResourceLink string   `json:"resource_link,omitempty"`
}

// PreferredKey returns the key a leader with the given vocal preference would
// sing this song in, falling back to the original key when no lead-specific
// key is recorded.
func (s *Song) PreferredKey(lead VocalLead) string {
	switch lead {
	case LeadMale:
		if s.BoyKey != "" {
			return s.BoyKey
		}
	case LeadFemale:
		if s.GirlKey != "" {
			return s.GirlKey
		}
	}
	return s.OriginalKey
}

// HasTag reports whether the song carries the given lyrical or musical tag.
func (s *Song) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	for _, t := range s.MusicalTags {
		if t == tag {
			return true
		}
	}
	return false
}

// TempoBand is an inclusive BPM range.
type TempoBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Clamp forces both bounds inside [MinBPM, MaxBPM] and keeps Min <= Max.
// Each bound is clamped independently first so a shift that pushes the whole
// band past a catalog bound collapses onto it instead of escaping the range.
func (b TempoBand) Clamp() TempoBand {
	b.Min = clampBPM(b.Min)
	b.Max = clampBPM(b.Max)
	if b.Min > b.Max {
		b.Min = b.Max
	}
	return b
}

func clampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// Contains reports whether bpm falls inside the band.
func (b TempoBand) Contains(bpm int) bool {
	return bpm >= b.Min && bpm <= b.Max
}

// Shift moves both bounds by delta BPM and re-clamps.
func (b TempoBand) Shift(delta int) TempoBand {
	return TempoBand{Min: b.Min + delta, Max: b.Max + delta}.Clamp()
}

// QueryConstraints is the structured form of one request. It is request
// scoped; the only copy that survives a request is the one stored on the
// session for follow-up reinterpretation.
type QueryConstraints struct {
	Tempo      *TempoBand `json:"tempo,omitempty"`
	Lead       VocalLead  `json:"lead,omitempty"`
	Key        string     `json:"key,omitempty"`
	Themes     []string   `json:"themes,omitempty"`
	FastSignal bool       `json:"fast_signal,omitempty"`
	Repeat     bool       `json:"repeat,omitempty"`
	More       bool       `json:"more,omitempty"`
	Relaxation int        `json:"relaxation"`
}

// Clone returns a deep copy so relaxation transforms never mutate the
// constraints recorded on a session.
func (c QueryConstraints) Clone() QueryConstraints {
	out := c
	if c.Tempo != nil {
		band := *c.Tempo
		out.Tempo = &band
	}
	out.Themes = append([]string(nil), c.Themes...)
	return out
}

// Unconstrained reports whether the query carries no filters at all.
func (c QueryConstraints) Unconstrained() bool {
	return c.Tempo == nil && c.Lead == LeadUnspecified && c.Key == "" && len(c.Themes) == 0
}

// Signal classifies a feedback submission.
type Signal string

const (
	SignalPositive Signal = "positive"
	SignalNegative Signal = "negative"
	SignalUsed     Signal = "used"
)

// Valid reports whether the signal is one the engine understands.
func (s Signal) Valid() bool {
	return s == SignalPositive || s == SignalNegative || s == SignalUsed
}

// FeedbackEvent records one applied feedback effect. The engine emits it to
// the logging collaborator and does not retain it.
type FeedbackEvent struct {
	UserID        string    `json:"user_id"`
	SongID        string    `json:"song_id"`
	Signal        Signal    `json:"signal"`
	Delta         int       `json:"delta"`
	Timestamp     time.Time `json:"timestamp"`
	ContextTokens []string  `json:"context_tokens,omitempty"`
}

// Recommendation ties one delivered song to the opaque slot identifier used
// for feedback attribution.
type Recommendation struct {
	SlotID string `json:"slot_id"`
	Song   Song   `json:"song"`
}

// QueryStatus distinguishes an empty catalog from a normal result set.
type QueryStatus string

const (
	QueryStatusOK           QueryStatus = "ok"
	QueryStatusEmptyCatalog QueryStatus = "empty_catalog"
)

// QueryOutcome is the engine's answer to one query.
type QueryOutcome struct {
	Status      QueryStatus      `json:"status"`
	Results     []Recommendation `json:"results"`
	Constraints QueryConstraints `json:"constraints"`
	Relaxed     []string         `json:"relaxed,omitempty"`
}
