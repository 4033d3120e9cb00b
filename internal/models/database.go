package models

// GORM models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "{}" {
			*s = StringArray{}
			return nil
		}
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resource link verification states.
const (
	LinkStatusUnverified = "unverified"
	LinkStatusReachable  = "reachable"
	LinkStatusBroken     = "broken"
)

// SongRecord is the persistent catalog row. The in-memory catalog index is
// rebuilt from these on load/refresh.
type SongRecord struct {
	BaseModel
	SongID       string      `json:"song_id" gorm:"unique;not null"`
	Title        string      `json:"title" gorm:"not null"`
	Artist       string      `json:"artist" gorm:"not null"`
	OriginalKey  string      `json:"original_key" gorm:"not null"`
	BoyKey       string      `json:"boy_key"`
	GirlKey      string      `json:"girl_key"`
	BPM          int         `json:"bpm" gorm:"check:bpm >= 40 AND bpm <= 200"`
	Tags         StringArray `json:"tags" gorm:"type:text[]"`
	MusicalTags  StringArray `json:"musical_tags" gorm:"type:text[]"`
	Familiarity  int         `json:"familiarity" gorm:"default:5"`
	ResourceLink string      `json:"resource_link"`
	LinkStatus   string      `json:"link_status" gorm:"default:'unverified';check:link_status IN ('unverified','reachable','broken')"`
	IsActive     bool        `json:"is_active" gorm:"default:true"`
}

// ToSong converts a catalog row to the in-memory domain form.
func (r *SongRecord) ToSong() Song {
	fam := r.Familiarity
	if fam < MinFamiliarity || fam > MaxFamiliarity {
		fam = DefaultFamiliarity
	}
	return Song{
		ID:           r.SongID,
		Title:        r.Title,
		Artist:       r.Artist,
		OriginalKey:  r.OriginalKey,
		BoyKey:       r.BoyKey,
		GirlKey:      r.GirlKey,
		BPM:          r.BPM,
		Tags:         append([]string(nil), r.Tags...),
		MusicalTags:  append([]string(nil), r.MusicalTags...),
		Familiarity:  fam,
		ResourceLink: r.ResourceLink,
	}
}

// FeedbackLog persists one applied feedback event for analytics.
type FeedbackLog struct {
	BaseModel
	UserID        string      `json:"user_id" gorm:"not null"`
	SongID        string      `json:"song_id" gorm:"not null"`
	Signal        string      `json:"signal" gorm:"not null;check:signal IN ('positive','negative','used')"`
	Delta         int         `json:"delta"`
	ContextTokens StringArray `json:"context_tokens" gorm:"type:text[]"`
	AppliedAt     time.Time   `json:"applied_at" gorm:"default:NOW()"`
}

// MessageLog records one inbound interaction and the engine's answer.
type MessageLog struct {
	BaseModel
	UserID          string    `json:"user_id" gorm:"not null"`
	MessageType     string    `json:"message_type" gorm:"not null;check:message_type IN ('search','more','feedback','unknown')"`
	MessageContent  string    `json:"message_content" gorm:"not null"`
	ResultsCount    int       `json:"results_count" gorm:"default:0"`
	ResponseTimeMs  int       `json:"response_time_ms"`
	ParsedBy        string    `json:"parsed_by" gorm:"default:'rules';check:parsed_by IN ('rules','nlp')"`
	QueryTimestamp  time.Time `json:"query_timestamp" gorm:"default:NOW()"`
	SessionSnapshot string    `json:"session_snapshot"`
}

// SongUsage tracks real service usage, the long-term input to familiarity.
type SongUsage struct {
	BaseModel
	SongID      string    `json:"song_id" gorm:"not null"`
	UsedAt      time.Time `json:"used_at" gorm:"default:NOW()"`
	ServiceType string    `json:"service_type" gorm:"default:'worship'"`
	Notes       string    `json:"notes"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// Database interfaces for repository pattern
type SongRepository interface {
	GetAllActive() ([]SongRecord, error)
	GetBySongID(songID string) (*SongRecord, error)
	Upsert(record *SongRecord) error
	UpdateFamiliarity(songID string, familiarity int) error
	UpdateLinkStatus(songID, status string) error
	Count() (int64, error)
}

type FeedbackLogRepository interface {
	Create(entry *FeedbackLog) error
	GetBySongID(songID string) ([]FeedbackLog, error)
	GetRecent(limit int) ([]FeedbackLog, error)
}

type MessageLogRepository interface {
	Create(entry *MessageLog) error
	GetByUser(userID string, limit int) ([]MessageLog, error)
}

type SongUsageRepository interface {
	Record(songID, serviceType, notes string) error
	CountSince(songID string, since time.Time) (int64, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetServiceHealth(serviceName string) (*SystemHealth, error)
	GetAllServicesHealth() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (SongRecord) TableName() string   { return "songs" }
func (FeedbackLog) TableName() string  { return "feedback_log" }
func (MessageLog) TableName() string   { return "message_logs" }
func (SongUsage) TableName() string    { return "song_usage" }
func (SystemHealth) TableName() string { return "system_health" }

// Model validation methods
func (r *SongRecord) Validate() error {
	if r.SongID == "" {
		return fmt.Errorf("song ID is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.BPM != 0 && (r.BPM < MinBPM || r.BPM > MaxBPM) {
		return fmt.Errorf("BPM %d outside [%d,%d]", r.BPM, MinBPM, MaxBPM)
	}
	return nil
}

func (f *FeedbackLog) Validate() error {
	if f.UserID == "" || f.SongID == "" {
		return fmt.Errorf("user ID and song ID are required")
	}
	if !Signal(f.Signal).Valid() {
		return fmt.Errorf("invalid signal: %s", f.Signal)
	}
	return nil
}

func (m *MessageLog) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if m.MessageContent == "" {
		return fmt.Errorf("message content is required")
	}
	return nil
}

// GORM hooks
func (r *SongRecord) BeforeCreate(tx *gorm.DB) error {
	return r.Validate()
}

func (f *FeedbackLog) BeforeCreate(tx *gorm.DB) error {
	return f.Validate()
}

func (m *MessageLog) BeforeCreate(tx *gorm.DB) error {
	return m.Validate()
}
