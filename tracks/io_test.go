package tracks

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sfmgo/model"
	"github.com/hupe1980/sfmgo/optional"
)

func graphWithDepth() *Manager {
	m := NewManager()
	m.AddObservation("s1", "t1", obs(0.125, -0.25, 1))

	withDepth := obs(0.5, 0.5, 2)
	withDepth.DepthPrior = optional.Of(model.Depth{Value: 2.5, StdDeviation: 0.1, IsRadial: true})
	m.AddObservation("s2", "t1", withDepth)
	m.AddObservation("s2", "t2", obs(-0.3, 0.1, 3))
	return m
}

func assertEqualGraphs(t *testing.T, want, got *Manager) {
	t.Helper()
	require.Equal(t, want.ShotIDs(), got.ShotIDs())
	require.Equal(t, want.TrackIDs(), got.TrackIDs())
	for _, shot := range want.ShotIDs() {
		wantRow, err := want.ShotObservations(shot)
		require.NoError(t, err)
		gotRow, err := got.ShotObservations(shot)
		require.NoError(t, err)
		require.Len(t, gotRow, len(wantRow))
		for track, wantObs := range wantRow {
			assert.True(t, wantObs.Equal(gotRow[track]), "shot %s track %s", shot, track)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	m := graphWithDepth()

	s := m.AsString()
	assert.True(t, strings.HasPrefix(s, "SFMGO_TRACKS_VERSION_v2\n"))

	got, err := FromString(s)
	require.NoError(t, err)
	assertEqualGraphs(t, m, got)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, s, m.AsString())
	})
}

func TestFileRoundTrip(t *testing.T) {
	m := graphWithDepth()

	t.Run("plain", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.csv")
		require.NoError(t, m.WriteToFile(path))

		got, err := FromFile(path)
		require.NoError(t, err)
		assertEqualGraphs(t, m, got)
	})

	t.Run("gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.csv.gz")
		require.NoError(t, m.WriteToFile(path))

		got, err := FromFile(path)
		require.NoError(t, err)
		assertEqualGraphs(t, m, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})
}

func TestFromStringErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing header", input: "s1\tt1\t1\n"},
		{name: "unsupported version", input: "SFMGO_TRACKS_VERSION_v99\n"},
		{name: "wrong field count", input: "SFMGO_TRACKS_VERSION_v2\ns1\tt1\t1\n"},
		{
			name:  "malformed number",
			input: "SFMGO_TRACKS_VERSION_v2\ns1\tt1\tX\t0\t0\t1\t0\t0\t0\t-1\t-1\t0\t0\t0\t0\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromString(tt.input)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestFromStringEmpty(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		m, err := FromString("")
		require.NoError(t, err)
		assert.Equal(t, 0, m.NumShots())
	})

	t.Run("header only", func(t *testing.T) {
		m, err := FromString("SFMGO_TRACKS_VERSION_v2\n")
		require.NoError(t, err)
		assert.Equal(t, 0, m.NumShots())
	})
}

func TestFromStringV1(t *testing.T) {
	// Version 1 rows have no depth columns.
	input := "SFMGO_TRACKS_VERSION_v1\n" +
		"s1\tt1\t7\t0.1\t0.2\t0.05\t10\t20\t30\t-1\t-1\n"

	m, err := FromString(input)
	require.NoError(t, err)

	got, err := m.Observation("s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.FeatureID(7), got.ID)
	assert.Equal(t, [2]float64{0.1, 0.2}, got.Point)
	assert.False(t, got.DepthPrior.HasValue())
}
