package seeder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "songs.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_Valid(t *testing.T) {
	path := writeSeedFile(t, `[
		{"song_id": "amazing-grace", "title": "Amazing Grace", "artist": "John Newton", "original_key": "G", "bpm": 68, "tags": ["grace"]},
		{"song_id": "oceans", "title": "Oceans", "artist": "Hillsong UNITED", "original_key": "D", "bpm": 70, "tags": ["faith"], "girl_key": "D"}
	]`)

	songs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "amazing-grace", songs[0].SongID)
	assert.Equal(t, "D", songs[1].GirlKey)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	path := writeSeedFile(t, `{"not": "an array"`)
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsMissingID(t *testing.T) {
	path := writeSeedFile(t, `[{"title": "No ID", "bpm": 70}]`)
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "song_id")
}

func TestLoadFile_RejectsDuplicateID(t *testing.T) {
	path := writeSeedFile(t, `[
		{"song_id": "dup", "title": "One", "bpm": 70},
		{"song_id": "dup", "title": "Two", "bpm": 72}
	]`)
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadFile_RejectsBPMOutOfRange(t *testing.T) {
	path := writeSeedFile(t, `[{"song_id": "too-fast", "title": "Too Fast", "bpm": 300}]`)
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "bpm")
}
