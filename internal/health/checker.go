package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/selahbot/backend/internal/catalog"
	"github.com/selahbot/backend/internal/database"
	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager  *database.Manager
	cache      *database.Cache
	index      *catalog.Index
	healthRepo models.SystemHealthRepository
	logger     *logrus.Logger
	nlpURL     string
}

func NewHealthChecker(dbManager *database.Manager, cache *database.Cache, index *catalog.Index, healthRepo models.SystemHealthRepository, logger *logrus.Logger, nlpURL string) *HealthChecker {
	return &HealthChecker{
		dbManager:  dbManager,
		cache:      cache,
		index:      index,
		healthRepo: healthRepo,
		logger:     logger,
		nlpURL:     nlpURL,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status      string          `json:"status"`
	Services    []ServiceHealth `json:"services"`
	CatalogSize int             `json:"catalog_size"`
	Uptime      string          `json:"uptime"`
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *HealthChecker) CheckPostgreSQL() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingDatabase()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).Error("PostgreSQL health check failed")
	}

	h.healthRepo.UpdateServiceHealth("postgresql", status, responseTime, errorMsg)

	return ServiceHealth{
		Name:         "postgresql",
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckRedis checks Redis cache health
func (h *HealthChecker) CheckRedis() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingRedis()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).Error("Redis health check failed")
	}

	h.healthRepo.UpdateServiceHealth("redis", status, responseTime, errorMsg)

	return ServiceHealth{
		Name:         "redis",
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckNLP checks the language-parse collaborator. The engine degrades to
// rule parsing without it, so a failure is degraded, not unhealthy.
func (h *HealthChecker) CheckNLP() ServiceHealth {
	start := time.Now()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(h.nlpURL + "/api/tags")

	responseTime := int(time.Since(start).Milliseconds())
	status := "healthy"
	errorMsg := ""

	if err != nil {
		status = "degraded"
		errorMsg = err.Error()
	} else {
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			status = "degraded"
			errorMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
	}

	if status != "healthy" {
		h.logger.WithField("error", errorMsg).Warn("NLP health check failed, rule parsing only")
	}

	h.healthRepo.UpdateServiceHealth("nlp", status, responseTime, errorMsg)

	return ServiceHealth{
		Name:         "nlp",
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckCatalog verifies the in-memory catalog is populated.
func (h *HealthChecker) CheckCatalog() ServiceHealth {
	status := "healthy"
	errorMsg := ""
	if h.index.Len() == 0 {
		status = "unhealthy"
		errorMsg = "catalog is empty"
	}

	h.healthRepo.UpdateServiceHealth("catalog", status, 0, errorMsg)

	return ServiceHealth{
		Name:        "catalog",
		Status:      status,
		Error:       errorMsg,
		LastChecked: time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll() OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
		h.CheckNLP(),
		h.CheckCatalog(),
	}

	overallStatus := "healthy"
	for _, service := range services {
		if service.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
		if service.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return OverallHealth{
		Status:      overallStatus,
		Services:    services,
		CatalogSize: h.index.Len(),
		Uptime:      h.getUptime(),
	}
}

// CheckCached returns cached health status if available
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	cachedHealth, err := h.cache.GetCachedSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(cachedHealth))
	overallStatus := "healthy"

	for i, hs := range cachedHealth {
		services[i] = ServiceHealth{
			Name:         hs.ServiceName,
			Status:       hs.Status,
			ResponseTime: hs.ResponseTimeMs,
			Error:        hs.ErrorMessage,
			LastChecked:  hs.CheckedAt.Format(time.RFC3339),
		}

		if hs.Status == "unhealthy" {
			overallStatus = "unhealthy"
		} else if hs.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return &OverallHealth{
		Status:      overallStatus,
		Services:    services,
		CatalogSize: h.index.Len(),
		Uptime:      h.getUptime(),
	}, nil
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	uptime := time.Since(startTime)
	return uptime.String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll()

			cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			healthModels := make([]models.SystemHealth, len(health.Services))
			for i, service := range health.Services {
				checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
				healthModels[i] = models.SystemHealth{
					ServiceName:    service.Name,
					Status:         service.Status,
					ResponseTimeMs: service.ResponseTime,
					ErrorMessage:   service.Error,
					CheckedAt:      checkedAt,
				}
			}

			if err := h.cache.CacheSystemHealth(cacheCtx, healthModels, 2*interval); err != nil {
				h.logger.WithError(err).Error("Failed to cache health status")
			}
			cancel()

			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
