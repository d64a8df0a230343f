package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

func sampleGame(gameID string, plies int) []TrainingRow {
	rows := make([]TrainingRow, plies)
	for i := range rows {
		rows[i] = TrainingRow{
			GameID:      gameID,
			Ply:         int32(i),
			Position:    "7/7/7/7/7/7",
			Policy:      int32(i % 7),
			PolicyProbs: []float32{0, 0, 0, 1, 0, 0, 0},
			Value:       1,
			Source:      "selfplay",
		}
	}
	return rows
}

func TestBatchWriterRoundTrip(t *testing.T) {
	outDir := t.TempDir()

	w, err := NewBatchWriter(outDir)
	require.NoError(t, err)

	require.NoError(t, w.AppendGame(sampleGame("g1", 9)))
	require.NoError(t, w.AppendGame(sampleGame("g2", 12)))
	require.Equal(t, 2, w.Games())
	require.Equal(t, 21, w.Rows())

	path, err := w.Finalize()
	require.NoError(t, err)
	require.Equal(t, outDir, filepath.Dir(path), "batch must be published out of tmp/")

	rows, err := parquet.ReadFile[TrainingRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 21)
	require.Equal(t, "g1", rows[0].GameID)
	require.Equal(t, "g2", rows[9].GameID)
	require.EqualValues(t, 3, rows[3].Policy)
	require.Len(t, rows[0].PolicyProbs, 7)
}

func TestBatchWriterEmptyBatchDiscarded(t *testing.T) {
	outDir := t.TempDir()

	w, err := NewBatchWriter(outDir)
	require.NoError(t, err)
	tmpPath := w.tmpPath

	path, err := w.Finalize()
	require.NoError(t, err)
	require.Empty(t, path)

	_, statErr := os.Stat(tmpPath)
	require.True(t, os.IsNotExist(statErr), "empty batch file should be removed")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.Equal(t, "tmp", e.Name(), "nothing should be published")
	}
}

func TestBatchWriterRejectsAppendAfterFinalize(t *testing.T) {
	w, err := NewBatchWriter(t.TempDir())
	require.NoError(t, err)

	_, err = w.Finalize()
	require.NoError(t, err)
	require.Error(t, w.AppendGame(sampleGame("g3", 4)))
}
