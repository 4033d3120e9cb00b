package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/selahbot/backend/internal/models"
	"github.com/selahbot/backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager creates a new database manager with connection pooling
func NewManager(config *Config, log *logrus.Logger) (*Manager, error) {
	var gl gormlogger.Interface
	switch config.LogLevel {
	case "debug":
		gl = gormlogger.Default.LogMode(gormlogger.Info)
	default:
		gl = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	// Open database connection with pooling
	db, err := gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true, // Improve performance
		PrepareStmt:            true, // Cache prepared statements
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 5
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute
	redisOpts.IdleCheckFrequency = 30 * time.Second

	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Database and Redis connections established successfully")

	return &Manager{
		DB:     db,
		Redis:  redisClient,
		logger: log,
	}, nil
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.SongRecord{},
		&models.FeedbackLog{},
		&models.MessageLog{},
		&models.SongUsage{},
		&models.SystemHealth{},
	)
}

// Close closes all database connections
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (m *Manager) PingRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Redis.Ping(ctx).Err()
}

// Cache wraps Redis for parse-result and health caching.
type Cache struct {
	client   *redis.Client
	parseTTL time.Duration
	logger   *logrus.Logger
}

func NewCache(client *redis.Client, parseTTL time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		client:   client,
		parseTTL: parseTTL,
		logger:   logger,
	}
}

// Cache key constants
const (
	ParseResultKey  = "parse:result:%s"
	SystemHealthKey = "system:health"
)

func parseKey(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return fmt.Sprintf(ParseResultKey, utils.MD5Hash(normalized))
}

// GetParse retrieves a cached parse result for an utterance. A miss or a
// Redis error both report a clean miss; the caller falls through to the
// live parse path.
func (c *Cache) GetParse(ctx context.Context, text string) (models.QueryConstraints, bool) {
	data, err := c.client.Get(ctx, parseKey(text)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("Parse cache read failed")
		}
		return models.QueryConstraints{}, false
	}

	var constraints models.QueryConstraints
	if err := json.Unmarshal([]byte(data), &constraints); err != nil {
		c.logger.WithError(err).Warn("Corrupt parse cache entry, discarding")
		c.client.Del(ctx, parseKey(text))
		return models.QueryConstraints{}, false
	}
	return constraints, true
}

// PutParse caches a parse result. Best effort.
func (c *Cache) PutParse(ctx context.Context, text string, constraints models.QueryConstraints) {
	data, err := json.Marshal(constraints)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, parseKey(text), data, c.parseTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("Parse cache write failed")
	}
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal system health: %w", err)
	}

	return c.client.Set(ctx, SystemHealthKey, data, expiration).Err()
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error) {
	data, err := c.client.Get(ctx, SystemHealthKey).Result()
	if err != nil {
		return nil, err
	}

	var health []models.SystemHealth
	err = json.Unmarshal([]byte(data), &health)
	return health, err
}

// InvalidateParseCache removes the cached parse for one utterance.
func (c *Cache) InvalidateParseCache(ctx context.Context, text string) error {
	return c.client.Del(ctx, parseKey(text)).Err()
}
