package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/acceptance"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

func TestSaveWritesJSONAndTracksRecent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)

	s := NewStore()
	result := TestResult{
		Device:  gpsdata.PortDescriptor{Path: "COM3", SerialNumber: "ABC123"},
		Verdict: acceptance.VerdictPass,
	}

	path, err := s.Save(result)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Dir(path), ResultsDir())

	recent := s.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, acceptance.VerdictPass, recent[0].Verdict)
}

func TestSaveFileNameFallsBackToUnknownSerial(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)

	s := NewStore()
	path, err := s.Save(TestResult{Device: gpsdata.PortDescriptor{Path: "COM3"}})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "gps-test_unknown_")
}

func TestRecentResultsCapsAtFifty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)

	s := NewStore()
	for i := 0; i < 60; i++ {
		_, err := s.Save(TestResult{})
		require.NoError(t, err)
	}
	assert.Len(t, s.Recent(), recentResultsCapacity)

	entries, err := os.ReadDir(ResultsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 60)
}
