package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Index is the in-memory, queryable view of the song catalog. Readers work
// against an immutable snapshot swapped atomically on every mutation, so a
// reload or familiarity adjustment never tears an in-flight query.
type Index struct {
	snapshot atomic.Value // *snapshot
	mu       sync.Mutex   // serializes writers
	logger   *logrus.Logger
}

type snapshot struct {
	songs []models.Song
	byID  map[string]int
}

func newSnapshot(songs []models.Song) *snapshot {
	byID := make(map[string]int, len(songs))
	for i := range songs {
		byID[songs[i].ID] = i
	}
	return &snapshot{songs: songs, byID: byID}
}

func NewIndex(logger *logrus.Logger) *Index {
	ix := &Index{logger: logger}
	ix.snapshot.Store(newSnapshot(nil))
	return ix
}

// Load replaces the whole index atomically. Readers observe either the old
// or the new catalog in full, never a mix.
func (ix *Index) Load(songs []models.Song) {
	copied := make([]models.Song, len(songs))
	copy(copied, songs)

	ix.mu.Lock()
	ix.snapshot.Store(newSnapshot(copied))
	ix.mu.Unlock()

	ix.logger.WithField("songs", len(copied)).Info("Catalog index loaded")
}

// LoadFromStore rebuilds the index from the persistent catalog store.
func (ix *Index) LoadFromStore(repo models.SongRepository) error {
	records, err := repo.GetAllActive()
	if err != nil {
		return err
	}

	songs := make([]models.Song, 0, len(records))
	for i := range records {
		songs = append(songs, records[i].ToSong())
	}
	ix.Load(songs)
	return nil
}

func (ix *Index) current() *snapshot {
	return ix.snapshot.Load().(*snapshot)
}

// Len returns the number of songs in the current snapshot.
func (ix *Index) Len() int {
	return len(ix.current().songs)
}

// Songs returns the current snapshot's songs. The returned slice is shared
// and must be treated as read-only.
func (ix *Index) Songs() []models.Song {
	return ix.current().songs
}

// Query returns the songs matching predicate from the current snapshot.
func (ix *Index) Query(predicate func(*models.Song) bool) []models.Song {
	snap := ix.current()
	var out []models.Song
	for i := range snap.songs {
		if predicate(&snap.songs[i]) {
			out = append(out, snap.songs[i])
		}
	}
	return out
}

// Get looks up one song by identifier.
func (ix *Index) Get(songID string) (models.Song, bool) {
	snap := ix.current()
	i, ok := snap.byID[songID]
	if !ok {
		return models.Song{}, false
	}
	return snap.songs[i], true
}

// AdjustFamiliarity applies a signed delta to one song's familiarity score,
// clamped to [MinFamiliarity, MaxFamiliarity], and returns the new score.
// The adjustment is published as a fresh snapshot so readers never observe a
// half-written song.
func (ix *Index) AdjustFamiliarity(songID string, delta int) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	snap := ix.current()
	i, ok := snap.byID[songID]
	if !ok {
		return 0, models.ErrSongNotFound
	}

	score := snap.songs[i].Familiarity + delta
	if score < models.MinFamiliarity {
		score = models.MinFamiliarity
	}
	if score > models.MaxFamiliarity {
		score = models.MaxFamiliarity
	}

	songs := make([]models.Song, len(snap.songs))
	copy(songs, snap.songs)
	songs[i].Familiarity = score
	ix.snapshot.Store(&snapshot{songs: songs, byID: snap.byID})

	ix.logger.WithFields(logrus.Fields{
		"song_id":     songID,
		"delta":       delta,
		"familiarity": score,
	}).Debug("Familiarity adjusted")

	return score, nil
}
