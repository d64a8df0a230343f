package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams completed self-play games into one growing parquet
// file. Rows accumulate in outDir/tmp and only move into outDir on
// Finalize, so the training pipeline never picks up a half-written batch.
type BatchWriter struct {
	tmpPath   string
	finalPath string

	file    *os.File
	writer  *parquet.GenericWriter[TrainingRow]
	games   int
	rowsOut int
}

// NewBatchWriter opens a new batch file under outDir/tmp.
func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("batch writer needs an output directory")
	}
	if abs, err := filepath.Abs(outDir); err == nil {
		outDir = abs
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}

	w := parquet.NewGenericWriter[TrainingRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", schemaTag)

	return &BatchWriter{
		tmpPath:   tmpPath,
		finalPath: filepath.Join(outDir, name),
		file:      f,
		writer:    w,
	}, nil
}

// Games returns the number of games appended so far.
func (w *BatchWriter) Games() int { return w.games }

// Rows returns the number of rows appended so far.
func (w *BatchWriter) Rows() int { return w.rowsOut }

// AppendGame writes one finished game's rows into the batch.
func (w *BatchWriter) AppendGame(rows []TrainingRow) error {
	if w.writer == nil {
		return fmt.Errorf("batch writer is finalized")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("append game: %w", err)
	}
	w.games++
	w.rowsOut += len(rows)
	return nil
}

// Finalize closes the batch and moves it out of tmp. An empty batch is
// deleted and an empty path returned. The writer is unusable afterwards.
func (w *BatchWriter) Finalize() (string, error) {
	if w.writer == nil {
		return "", nil
	}

	closeErr := w.writer.Close()
	w.writer = nil
	_ = w.file.Sync()
	fileErr := w.file.Close()
	w.file = nil
	if closeErr != nil {
		return "", fmt.Errorf("close batch: %w", closeErr)
	}
	if fileErr != nil {
		return "", fmt.Errorf("close batch file: %w", fileErr)
	}

	if w.rowsOut == 0 {
		_ = os.Remove(w.tmpPath)
		return "", nil
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return "", fmt.Errorf("publish batch: %w", err)
	}
	return w.finalPath, nil
}
