package persist

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSlot stores the slot as <dataDir>/<name>.json.
type FileSlot struct {
	dataDir string
	name    string
}

// NewFileSlot creates a file-backed slot.
func NewFileSlot(dataDir, name string) *FileSlot {
	return &FileSlot{dataDir: dataDir, name: name}
}

func (s *FileSlot) Name() string { return s.name }

// Path returns the file holding the slot.
func (s *FileSlot) Path() string {
	return filepath.Join(s.dataDir, fileName(s.name)+".json")
}

func (s *FileSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	return data, err
}

func (s *FileSlot) Write(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	// Write beside the target and rename so a crash never leaves half a file.
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path())
}

func (s *FileSlot) Close() error { return nil }

// fileName keeps slot names from escaping the data directory.
func fileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if s := strings.Trim(b.String(), "."); s != "" {
		return s
	}
	return "style"
}
