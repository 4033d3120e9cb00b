package repository

import (
	"time"

	"github.com/selahbot/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SongRepositoryImpl implements SongRepository
type SongRepositoryImpl struct {
	db *gorm.DB
}

func NewSongRepository(db *gorm.DB) models.SongRepository {
	return &SongRepositoryImpl{db: db}
}

func (r *SongRepositoryImpl) GetAllActive() ([]models.SongRecord, error) {
	var songs []models.SongRecord
	err := r.db.Where("is_active = ?", true).
		Order("song_id").
		Find(&songs).Error
	return songs, err
}

func (r *SongRepositoryImpl) GetBySongID(songID string) (*models.SongRecord, error) {
	var song models.SongRecord
	err := r.db.Where("song_id = ?", songID).First(&song).Error
	if err != nil {
		return nil, err
	}
	return &song, nil
}

func (r *SongRepositoryImpl) Upsert(song *models.SongRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "song_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "artist", "original_key", "boy_key", "girl_key",
			"bpm", "tags", "musical_tags", "resource_link", "is_active", "updated_at",
		}),
	}).Create(song).Error
}

func (r *SongRepositoryImpl) UpdateFamiliarity(songID string, familiarity int) error {
	return r.db.Model(&models.SongRecord{}).
		Where("song_id = ?", songID).
		Update("familiarity", familiarity).Error
}

func (r *SongRepositoryImpl) UpdateLinkStatus(songID, status string) error {
	return r.db.Model(&models.SongRecord{}).
		Where("song_id = ?", songID).
		Update("link_status", status).Error
}

func (r *SongRepositoryImpl) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.SongRecord{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

// FeedbackLogRepositoryImpl implements FeedbackLogRepository
type FeedbackLogRepositoryImpl struct {
	db *gorm.DB
}

func NewFeedbackLogRepository(db *gorm.DB) models.FeedbackLogRepository {
	return &FeedbackLogRepositoryImpl{db: db}
}

func (r *FeedbackLogRepositoryImpl) Create(entry *models.FeedbackLog) error {
	return r.db.Create(entry).Error
}

func (r *FeedbackLogRepositoryImpl) GetBySongID(songID string) ([]models.FeedbackLog, error) {
	var entries []models.FeedbackLog
	err := r.db.Where("song_id = ?", songID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *FeedbackLogRepositoryImpl) GetRecent(limit int) ([]models.FeedbackLog, error) {
	var entries []models.FeedbackLog
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// MessageLogRepositoryImpl implements MessageLogRepository
type MessageLogRepositoryImpl struct {
	db *gorm.DB
}

func NewMessageLogRepository(db *gorm.DB) models.MessageLogRepository {
	return &MessageLogRepositoryImpl{db: db}
}

func (r *MessageLogRepositoryImpl) Create(entry *models.MessageLog) error {
	return r.db.Create(entry).Error
}

func (r *MessageLogRepositoryImpl) GetByUser(userID string, limit int) ([]models.MessageLog, error) {
	var entries []models.MessageLog
	err := r.db.Where("user_id = ?", userID).
		Order("query_timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// SongUsageRepositoryImpl implements SongUsageRepository
type SongUsageRepositoryImpl struct {
	db *gorm.DB
}

func NewSongUsageRepository(db *gorm.DB) models.SongUsageRepository {
	return &SongUsageRepositoryImpl{db: db}
}

func (r *SongUsageRepositoryImpl) Record(songID, serviceType, notes string) error {
	usage := models.SongUsage{
		SongID:      songID,
		UsedAt:      time.Now(),
		ServiceType: serviceType,
		Notes:       notes,
	}
	return r.db.Create(&usage).Error
}

func (r *SongUsageRepositoryImpl) CountSince(songID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.SongUsage{}).
		Where("song_id = ? AND used_at >= ?", songID, since).
		Count(&count).Error
	return count, err
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	var health models.SystemHealth
	err := r.db.Where("service_name = ?", serviceName).
		Order("checked_at DESC").
		First(&health).Error
	if err != nil {
		return nil, err
	}
	return &health, nil
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Song         models.SongRepository
	FeedbackLog  models.FeedbackLogRepository
	MessageLog   models.MessageLogRepository
	SongUsage    models.SongUsageRepository
	SystemHealth models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Song:         NewSongRepository(db),
		FeedbackLog:  NewFeedbackLogRepository(db),
		MessageLog:   NewMessageLogRepository(db),
		SongUsage:    NewSongUsageRepository(db),
		SystemHealth: NewSystemHealthRepository(db),
	}
}
