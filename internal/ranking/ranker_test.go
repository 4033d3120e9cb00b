package ranking

import (
	"io"
	"testing"

	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRanker() *Ranker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(config.DefaultEngineConfig(), logger)
}

func band(min, max int) *models.TempoBand {
	return &models.TempoBand{Min: min, Max: max}
}

func rankingCatalog() []models.Song {
	return []models.Song{
		{ID: "amazing-grace", BPM: 68, Familiarity: 8, Tags: []string{"grace", "redemption"}, OriginalKey: "G"},
		{ID: "great-is-thy-faithfulness", BPM: 66, Familiarity: 7, Tags: []string{"faithfulness"}, OriginalKey: "Eb", BoyKey: "C"},
		{ID: "how-deep-the-fathers-love", BPM: 62, Familiarity: 6, Tags: []string{"love", "blood"}, OriginalKey: "D"},
		{ID: "cornerstone", BPM: 72, Familiarity: 9, Tags: []string{"faith", "hope"}, OriginalKey: "C", BoyKey: "B"},
		{ID: "this-is-amazing-grace", BPM: 124, Familiarity: 9, Tags: []string{"grace", "praise"}, OriginalKey: "G", BoyKey: "G"},
		{ID: "happy-day", BPM: 140, Familiarity: 7, Tags: []string{"joy", "praise"}, OriginalKey: "A"},
		{ID: "oceans", BPM: 70, Familiarity: 10, Tags: []string{"faith", "trust"}, OriginalKey: "D", GirlKey: "D"},
	}
}

func TestRank_ThemeAndTempo(t *testing.T) {
	r := newTestRanker()

	c := models.QueryConstraints{Themes: []string{"grace"}, Tempo: band(40, 80)}
	results, relaxed := r.Rank(c, rankingCatalog(), nil)

	require.NotEmpty(t, results)
	// Relaxation widens the pool to reach the candidate minimum, but the
	// in-band grace song must still rank first.
	assert.Equal(t, "amazing-grace", results[0].ID)
	assert.Contains(t, relaxed, "tempo")
}

func TestRank_Deterministic(t *testing.T) {
	r := newTestRanker()
	c := models.QueryConstraints{Themes: []string{"faith"}}

	first, _ := r.Rank(c, rankingCatalog(), nil)
	for i := 0; i < 5; i++ {
		again, _ := r.Rank(c, rankingCatalog(), nil)
		require.Equal(t, ids(first), ids(again))
	}
}

func TestRank_ResultLimit(t *testing.T) {
	r := newTestRanker()

	results, _ := r.Rank(models.QueryConstraints{}, rankingCatalog(), nil)
	assert.LessOrEqual(t, len(results), r.cfg.ResultLimit)
}

func TestRank_ExclusionWindow(t *testing.T) {
	r := newTestRanker()
	c := models.QueryConstraints{Themes: []string{"grace"}}

	exclude := map[string]bool{"amazing-grace": true}
	results, _ := r.Rank(c, rankingCatalog(), exclude)

	assert.NotContains(t, ids(results), "amazing-grace")
}

func TestRank_RepeatBypassesExclusion(t *testing.T) {
	r := newTestRanker()
	c := models.QueryConstraints{Themes: []string{"grace"}, Repeat: true}

	exclude := map[string]bool{"amazing-grace": true, "this-is-amazing-grace": true}
	results, _ := r.Rank(c, rankingCatalog(), exclude)

	assert.Contains(t, ids(results), "amazing-grace")
}

func TestRank_RelaxesTempoBeforeTheme(t *testing.T) {
	r := newTestRanker()

	// Only one song matches joy, and it is outside the requested band, so
	// tempo must be the first constraint dropped.
	c := models.QueryConstraints{Themes: []string{"joy"}, Tempo: band(40, 80)}
	results, relaxed := r.Rank(c, rankingCatalog(), nil)

	require.NotEmpty(t, relaxed)
	assert.Equal(t, "tempo", relaxed[0])
	assert.Contains(t, ids(results), "happy-day")
}

func TestRank_KeyNeverExcludes(t *testing.T) {
	r := newTestRanker()

	// No catalog song is in F#; the key preference must not empty the result.
	c := models.QueryConstraints{Themes: []string{"faith"}, Key: "F#"}
	results, _ := r.Rank(c, rankingCatalog(), nil)

	assert.NotEmpty(t, results)
}

func TestRank_KeyPreferenceRanksHigher(t *testing.T) {
	r := newTestRanker()

	// Both grace songs sit inside the band, so the key tier decides: the
	// one with a recorded male-lead key in G outranks the original-key
	// fallback match.
	c := models.QueryConstraints{Themes: []string{"grace"}, Key: "G", Lead: models.LeadMale, Tempo: band(40, 200)}
	results, _ := r.Rank(c, rankingCatalog(), nil)

	require.NotEmpty(t, results)
	assert.Equal(t, "this-is-amazing-grace", results[0].ID)
}

func TestRank_AltarCallBias(t *testing.T) {
	r := newTestRanker()

	// No tempo signal at all: slower songs surface first.
	results, _ := r.Rank(models.QueryConstraints{}, rankingCatalog(), nil)

	require.NotEmpty(t, results)
	assert.Equal(t, "how-deep-the-fathers-love", results[0].ID)
}

func TestRank_FastSignalDisablesSlowBias(t *testing.T) {
	r := newTestRanker()

	results, _ := r.Rank(models.QueryConstraints{FastSignal: true}, rankingCatalog(), nil)

	require.NotEmpty(t, results)
	assert.NotEqual(t, "how-deep-the-fathers-love", results[0].ID)
}

func TestRank_NeverEmptyWhileCatalogHasSongs(t *testing.T) {
	r := newTestRanker()

	// Impossible constraints plus a full exclusion window.
	exclude := map[string]bool{}
	for _, s := range rankingCatalog() {
		exclude[s.ID] = true
	}
	c := models.QueryConstraints{Themes: []string{"nonexistent-theme"}, Tempo: band(40, 41)}

	results, relaxed := r.Rank(c, rankingCatalog(), exclude)

	assert.NotEmpty(t, results)
	assert.Contains(t, relaxed, "history")
}

func TestQualifyingCount_MonotoneUnderRelaxation(t *testing.T) {
	catalog := rankingCatalog()
	c := models.QueryConstraints{Themes: []string{"grace"}, Tempo: band(40, 80), Key: "G"}

	before := QualifyingCount(c, catalog)

	relaxedC := c.Clone()
	relaxedC.Tempo = nil
	afterTempo := QualifyingCount(relaxedC, catalog)
	assert.GreaterOrEqual(t, afterTempo, before)

	relaxedC.Themes = nil
	afterTheme := QualifyingCount(relaxedC, catalog)
	assert.GreaterOrEqual(t, afterTheme, afterTempo)
}

func ids(songs []models.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}
