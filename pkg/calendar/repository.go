package calendar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Repository is the durable mirror of the store. Save always receives the
// full event set.
type Repository interface {
	Load() ([]Event, []DecodeWarning, error)
	Save(events []Event) error
}

type FileRepository struct {
	path string
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the data file. A missing file is created empty.
func (r *FileRepository) Load() ([]Event, []DecodeWarning, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Infof("Data file not found at %s, creating an empty one", r.path)
			if err := r.Save(nil); err != nil {
				return nil, nil, fmt.Errorf("failed to initialize data file: %w", err)
			}
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read data file: %w", err)
	}
	events, warnings := Decode(data)
	return events, warnings, nil
}

// Save writes to a temp file next to the target and renames it over the
// data file, so readers see either the old or the new content.
func (r *FileRepository) Save(events []Event) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".planner-data-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(Encode(events)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, r.path)
}
