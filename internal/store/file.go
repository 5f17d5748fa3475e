package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shiftlog/internal/model"
	"shiftlog/internal/sheet"
)

// FileStore keeps the collection in a CSV data file and regenerates an XLSX
// backup next to it on every save. Both files are replaced atomically.
type FileStore struct {
	dataPath   string
	backupPath string
}

// NewFileStore returns a file persister. An empty backupPath disables the backup.
func NewFileStore(dataPath, backupPath string) *FileStore {
	return &FileStore{dataPath: dataPath, backupPath: backupPath}
}

func (f *FileStore) Load(ctx context.Context) ([]*model.AttendanceRecord, bool, error) {
	file, err := os.Open(f.dataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", f.dataPath, err)
	}
	defer file.Close()

	rows, err := sheet.ReadCSV(file)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.dataPath, err)
	}
	if len(rows) == 0 {
		return []*model.AttendanceRecord{}, true, nil
	}
	recs, err := sheet.Decode(rows)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", f.dataPath, err)
	}
	return recs, true, nil
}

// Save writes the backup first and the data file last. The data file is the
// commit point: once it is replaced the save has succeeded, and any earlier
// failure leaves it untouched.
func (f *FileStore) Save(ctx context.Context, records []*model.AttendanceRecord) error {
	if f.backupPath != "" {
		if err := writeFileAtomic(f.backupPath, func(w io.Writer) error {
			return sheet.WriteXLSX(w, records)
		}); err != nil {
			return fmt.Errorf("write %s: %w", f.backupPath, err)
		}
	}
	if err := writeFileAtomic(f.dataPath, func(w io.Writer) error {
		return sheet.WriteCSV(w, records)
	}); err != nil {
		return fmt.Errorf("write %s: %w", f.dataPath, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory, syncs it and
// renames it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
