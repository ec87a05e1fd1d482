package encounter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const snapshotBatchSize = 10000

// WriteSnapshot writes the cleaned rows to a Parquet snapshot, replacing any
// file already at the path. Zstd keeps the snapshot small; statistics stay on
// so downstream scans can skip row groups.
func WriteSnapshot(path string, rows []CleanEncounter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}

	writer := parquet.NewGenericWriter[CleanEncounter](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("hospitalops", "1.0", ""),
	)

	for start := 0; start < len(rows); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := writer.Write(rows[start:end]); err != nil {
			file.Close()
			return fmt.Errorf("write snapshot batch: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("close snapshot writer: %w", err)
	}
	return file.Close()
}

// ReadSnapshot loads every row of a Parquet snapshot.
func ReadSnapshot(path string) ([]CleanEncounter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer file.Close()

	reader := parquet.NewGenericReader[CleanEncounter](file)
	defer reader.Close()

	var rows []CleanEncounter
	buf := make([]CleanEncounter, snapshotBatchSize)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot rows: %w", err)
		}
	}
	return rows, nil
}
