package parser

import (
	"io"
	"testing"

	"github.com/selahbot/backend/internal/config"
	"github.com/selahbot/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p := New(config.DefaultEngineConfig(), logger)
	p.SetVocabulary([]string{"grace", "worship", "surrender", "peace", "faith", "hope", "joy", "love"})
	return p
}

func TestParse_TempoVocabulary(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		text string
		min  int
		max  int
	}{
		{"slow worship songs", 40, 80},
		{"something contemplative", 40, 80},
		{"medium tempo", 80, 120},
		{"fast praise songs", 120, 200},
		{"upbeat songs about joy", 120, 200},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c := p.Parse(tt.text, nil)
			require.NotNil(t, c.Tempo)
			assert.Equal(t, tt.min, c.Tempo.Min)
			assert.Equal(t, tt.max, c.Tempo.Max)
		})
	}
}

func TestParse_FastSignal(t *testing.T) {
	p := newTestParser()

	c := p.Parse("upbeat celebration songs", nil)
	assert.True(t, c.FastSignal)

	c = p.Parse("slow songs about grace", nil)
	assert.False(t, c.FastSignal)
}

func TestParse_KeyExtraction(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		text string
		key  string
	}{
		{"songs in the key of G", "G"},
		{"key of f#", "F#"},
		{"worship in Bb", "Bb"},
		{"songs in the key of eb please", "Eb"},
		{"a song with no pitch request", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c := p.Parse(tt.text, nil)
			assert.Equal(t, tt.key, c.Key)
		})
	}
}

func TestParse_VocalLead(t *testing.T) {
	p := newTestParser()

	c := p.Parse("male lead worship songs", nil)
	assert.Equal(t, models.LeadMale, c.Lead)

	c = p.Parse("songs for a female vocalist", nil)
	assert.Equal(t, models.LeadFemale, c.Lead)

	c = p.Parse("worship songs", nil)
	assert.Equal(t, models.LeadUnspecified, c.Lead)
}

func TestParse_ThemeSynonyms(t *testing.T) {
	p := newTestParser()

	c := p.Parse("songs about mercy and forgiveness", nil)
	assert.Equal(t, []string{"grace"}, c.Themes)

	c = p.Parse("something about surrender and peace", nil)
	assert.ElementsMatch(t, []string{"surrender", "peace"}, c.Themes)
}

func TestParse_UnknownWordsYieldNoThemes(t *testing.T) {
	p := newTestParser()

	c := p.Parse("qwxz florple", nil)
	assert.Empty(t, c.Themes)
	assert.True(t, c.Unconstrained())
}

func TestParse_SlowerShiftsPriorBand(t *testing.T) {
	p := newTestParser()

	prior := &models.QueryConstraints{
		Tempo:  &models.TempoBand{Min: 80, Max: 120},
		Themes: []string{"grace"},
	}

	c := p.Parse("slower", prior)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, 70, c.Tempo.Min)
	assert.Equal(t, 110, c.Tempo.Max)
	// Bare follow-up inherits the prior themes.
	assert.Equal(t, []string{"grace"}, c.Themes)
}

func TestParse_FasterShiftsPriorBand(t *testing.T) {
	p := newTestParser()

	prior := &models.QueryConstraints{Tempo: &models.TempoBand{Min: 80, Max: 120}}

	c := p.Parse("faster", prior)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, 90, c.Tempo.Min)
	assert.Equal(t, 130, c.Tempo.Max)
	assert.True(t, c.FastSignal)
}

func TestParse_SlowerWithoutPriorUsesAbsoluteBand(t *testing.T) {
	p := newTestParser()

	c := p.Parse("slower", nil)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, 40, c.Tempo.Min)
	assert.Equal(t, 80, c.Tempo.Max)

	c = p.Parse("faster", nil)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, 120, c.Tempo.Min)
	assert.Equal(t, 200, c.Tempo.Max)
}

func TestParse_ShiftClampsAtCatalogBounds(t *testing.T) {
	p := newTestParser()

	prior := &models.QueryConstraints{Tempo: &models.TempoBand{Min: 40, Max: 80}}

	c := p.Parse("slower", prior)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, models.MinBPM, c.Tempo.Min)
}

func TestParse_RepeatedSlowerFloorsAtMinBPM(t *testing.T) {
	p := newTestParser()

	c := p.Parse("slow songs", nil)
	for i := 0; i < 6; i++ {
		prior := c
		c = p.Parse("slower", &prior)
		require.NotNil(t, c.Tempo)
		assert.GreaterOrEqual(t, c.Tempo.Min, models.MinBPM)
		assert.GreaterOrEqual(t, c.Tempo.Max, c.Tempo.Min)
	}
	assert.Equal(t, models.MinBPM, c.Tempo.Min)
	assert.Equal(t, models.MinBPM, c.Tempo.Max)
}

func TestParse_RepeatedFasterCeilsAtMaxBPM(t *testing.T) {
	p := newTestParser()

	c := p.Parse("fast songs", nil)
	for i := 0; i < 10; i++ {
		prior := c
		c = p.Parse("faster", &prior)
		require.NotNil(t, c.Tempo)
		assert.LessOrEqual(t, c.Tempo.Max, models.MaxBPM)
		assert.GreaterOrEqual(t, c.Tempo.Max, c.Tempo.Min)
	}
	assert.Equal(t, models.MaxBPM, c.Tempo.Min)
	assert.Equal(t, models.MaxBPM, c.Tempo.Max)
}

func TestParse_MoreInheritsPriorContext(t *testing.T) {
	p := newTestParser()

	prior := &models.QueryConstraints{
		Themes: []string{"grace"},
		Lead:   models.LeadFemale,
		Key:    "G",
		Tempo:  &models.TempoBand{Min: 40, Max: 80},
	}

	c := p.Parse("more", prior)
	assert.True(t, c.More)
	assert.Equal(t, []string{"grace"}, c.Themes)
	assert.Equal(t, models.LeadFemale, c.Lead)
	assert.Equal(t, "G", c.Key)
	require.NotNil(t, c.Tempo)
	assert.Equal(t, 40, c.Tempo.Min)
}

func TestParse_NewThemesOverridePrior(t *testing.T) {
	p := newTestParser()

	prior := &models.QueryConstraints{Themes: []string{"grace"}}

	c := p.Parse("more songs about joy", prior)
	assert.True(t, c.More)
	assert.Equal(t, []string{"joy"}, c.Themes)
}

func TestKeysMatch(t *testing.T) {
	assert.True(t, KeysMatch("G", "g"))
	assert.True(t, KeysMatch("Bb", "bb"))
	assert.True(t, KeysMatch("F#", "f#"))
	assert.False(t, KeysMatch("G", "A"))
	assert.False(t, KeysMatch("", "G"))
}
