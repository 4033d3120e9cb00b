package catalog

import (
	"io"
	"testing"

	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testSongs() []models.Song {
	return []models.Song{
		{ID: "amazing-grace", Title: "Amazing Grace", BPM: 68, Familiarity: 8, Tags: []string{"grace"}},
		{ID: "oceans", Title: "Oceans", BPM: 72, Familiarity: 9, Tags: []string{"faith", "trust"}},
		{ID: "what-a-beautiful-name", Title: "What A Beautiful Name", BPM: 68, Familiarity: 10, Tags: []string{"worship"}},
	}
}

func TestIndex_LoadAndGet(t *testing.T) {
	ix := NewIndex(testLogger())
	assert.Equal(t, 0, ix.Len())

	ix.Load(testSongs())
	assert.Equal(t, 3, ix.Len())

	song, ok := ix.Get("oceans")
	require.True(t, ok)
	assert.Equal(t, "Oceans", song.Title)

	_, ok = ix.Get("missing")
	assert.False(t, ok)
}

func TestIndex_Load_ReplacesWholesale(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	ix.Load([]models.Song{{ID: "new-song", Title: "New Song", BPM: 100, Familiarity: 5}})

	assert.Equal(t, 1, ix.Len())
	_, ok := ix.Get("oceans")
	assert.False(t, ok)
}

func TestIndex_Load_CopiesInput(t *testing.T) {
	ix := NewIndex(testLogger())
	songs := testSongs()
	ix.Load(songs)

	songs[0].Title = "mutated"

	got, ok := ix.Get("amazing-grace")
	require.True(t, ok)
	assert.Equal(t, "Amazing Grace", got.Title)
}

func TestIndex_AdjustFamiliarity(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	score, err := ix.AdjustFamiliarity("amazing-grace", 1)
	require.NoError(t, err)
	assert.Equal(t, 9, score)

	song, _ := ix.Get("amazing-grace")
	assert.Equal(t, 9, song.Familiarity)
}

func TestIndex_AdjustFamiliarity_ClampsAtBounds(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	score, err := ix.AdjustFamiliarity("what-a-beautiful-name", 2)
	require.NoError(t, err)
	assert.Equal(t, models.MaxFamiliarity, score)

	for i := 0; i < 10; i++ {
		score, err = ix.AdjustFamiliarity("amazing-grace", -2)
		require.NoError(t, err)
	}
	assert.Equal(t, models.MinFamiliarity, score)
}

func TestIndex_AdjustFamiliarity_UnknownSong(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	_, err := ix.AdjustFamiliarity("missing", 1)
	assert.ErrorIs(t, err, models.ErrSongNotFound)
}

func TestIndex_AdjustFamiliarity_DoesNotMutateOldSnapshot(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	before := ix.Songs()
	original := before[0].Familiarity

	_, err := ix.AdjustFamiliarity(before[0].ID, 1)
	require.NoError(t, err)

	// The snapshot handed out before the adjustment must be unchanged.
	assert.Equal(t, original, before[0].Familiarity)
}

func TestIndex_Query(t *testing.T) {
	ix := NewIndex(testLogger())
	ix.Load(testSongs())

	slow := ix.Query(func(s *models.Song) bool { return s.BPM < 70 })
	assert.Len(t, slow, 2)
}
