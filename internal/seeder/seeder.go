package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// SeedSong is one catalog entry as it appears in the seed file.
type SeedSong struct {
	SongID       string   `json:"song_id"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	OriginalKey  string   `json:"original_key"`
	BoyKey       string   `json:"boy_key,omitempty"`
	GirlKey      string   `json:"girl_key,omitempty"`
	BPM          int      `json:"bpm"`
	Tags         []string `json:"tags"`
	MusicalTags  []string `json:"musical_tags,omitempty"`
	Familiarity  int      `json:"familiarity,omitempty"`
	ResourceLink string   `json:"resource_link,omitempty"`
}

// Options controls a seeding run.
type Options struct {
	DryRun      bool
	Limit       int
	VerifyLinks bool
	Delay       time.Duration
	Concurrent  int
}

// CatalogSeeder loads the song seed file into the catalog store and
// optionally verifies each resource link.
type CatalogSeeder struct {
	songs    models.SongRepository
	opts     Options
	logger   *logrus.Logger
	seeded   int
	verified int
	broken   int
	errors   []error
}

func NewCatalogSeeder(songs models.SongRepository, opts Options, logger *logrus.Logger) *CatalogSeeder {
	if opts.Concurrent <= 0 {
		opts.Concurrent = 2
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	return &CatalogSeeder{
		songs:  songs,
		opts:   opts,
		logger: logger,
	}
}

// LoadFile reads and validates the seed file.
func LoadFile(path string) ([]SeedSong, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var songs []SeedSong
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := map[string]bool{}
	for i, s := range songs {
		if s.SongID == "" || s.Title == "" {
			return nil, fmt.Errorf("entry %d: song_id and title are required", i)
		}
		if seen[s.SongID] {
			return nil, fmt.Errorf("entry %d: duplicate song_id %q", i, s.SongID)
		}
		seen[s.SongID] = true
		if s.BPM < models.MinBPM || s.BPM > models.MaxBPM {
			return nil, fmt.Errorf("entry %d (%s): bpm %d outside [%d, %d]", i, s.SongID, s.BPM, models.MinBPM, models.MaxBPM)
		}
	}
	return songs, nil
}

// Seed upserts the loaded songs.
func (cs *CatalogSeeder) Seed(ctx context.Context, songs []SeedSong) error {
	if cs.opts.Limit > 0 && cs.opts.Limit < len(songs) {
		songs = songs[:cs.opts.Limit]
		cs.logger.WithField("limit", cs.opts.Limit).Info("Limited songs to process")
	}

	cs.logger.WithField("total_songs", len(songs)).Info("Seeding song catalog")

	for i, seed := range songs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cs.logger.WithFields(logrus.Fields{
			"song":     seed.SongID,
			"progress": fmt.Sprintf("%d/%d", i+1, len(songs)),
		}).Debug("Processing song")

		record := cs.toRecord(seed)

		if cs.opts.VerifyLinks && record.ResourceLink != "" {
			record.LinkStatus = cs.verifyLink(record.ResourceLink)
			if record.LinkStatus == models.LinkStatusBroken {
				cs.broken++
			} else {
				cs.verified++
			}
		}

		if cs.opts.DryRun {
			cs.logger.WithFields(logrus.Fields{
				"song":  record.SongID,
				"title": record.Title,
				"link":  record.LinkStatus,
			}).Info("Dry run, would upsert")
			cs.seeded++
			continue
		}

		if err := cs.songs.Upsert(&record); err != nil {
			cs.logger.WithError(err).WithField("song", seed.SongID).Error("Failed to upsert song")
			cs.errors = append(cs.errors, fmt.Errorf("failed to upsert %s: %w", seed.SongID, err))
			continue
		}
		cs.seeded++
	}

	cs.logger.WithFields(logrus.Fields{
		"seeded":   cs.seeded,
		"verified": cs.verified,
		"broken":   cs.broken,
		"errors":   len(cs.errors),
	}).Info("Catalog seeding completed")

	if len(cs.errors) > 0 {
		for _, err := range cs.errors {
			cs.logger.WithError(err).Warn("Seeding error")
		}
		return fmt.Errorf("%d of %d songs failed", len(cs.errors), len(songs))
	}
	return nil
}

func (cs *CatalogSeeder) toRecord(seed SeedSong) models.SongRecord {
	familiarity := seed.Familiarity
	if familiarity == 0 {
		familiarity = models.DefaultFamiliarity
	}
	return models.SongRecord{
		SongID:       seed.SongID,
		Title:        seed.Title,
		Artist:       seed.Artist,
		OriginalKey:  seed.OriginalKey,
		BoyKey:       seed.BoyKey,
		GirlKey:      seed.GirlKey,
		BPM:          seed.BPM,
		Tags:         models.StringArray(seed.Tags),
		MusicalTags:  models.StringArray(seed.MusicalTags),
		Familiarity:  familiarity,
		ResourceLink: seed.ResourceLink,
		LinkStatus:   models.LinkStatusUnverified,
		IsActive:     true,
	}
}

// verifyLink fetches the resource link once and classifies it. A fresh
// collector per link avoids shared visited-URL state across songs.
func (cs *CatalogSeeder) verifyLink(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return models.LinkStatusBroken
	}

	c := colly.NewCollector(
		colly.UserAgent("SelahBot-Seeder/1.0"),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  parsed.Host,
		Parallelism: cs.opts.Concurrent,
		Delay:       cs.opts.Delay,
	})
	c.SetRequestTimeout(30 * time.Second)

	status := models.LinkStatusBroken
	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 400 {
			status = models.LinkStatusReachable
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		cs.logger.WithError(err).WithField("link", link).Debug("Link verification failed")
	})

	if err := c.Visit(link); err != nil {
		return models.LinkStatusBroken
	}
	c.Wait()
	return status
}
