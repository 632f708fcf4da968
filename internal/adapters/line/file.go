package line

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/parakeet/internal/domain/model"
)

const signalFilePermission = 0o644

// FileLine is a signal file holding "1" while a simulated ray is passing and
// "0" otherwise. Anything other than "1" reads LOW.
type FileLine struct {
	path string
}

// OpenFile returns a line backed by path, creating it LOW when missing.
func OpenFile(path string) (*FileLine, error) {
	l := &FileLine{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := l.Set(model.Low); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat signal file: %w", err)
	}
	return l, nil
}

// Read parses the current file content. A missing file reads LOW.
func (l *FileLine) Read(_ context.Context) (model.Level, error) {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Low, nil
	}
	if err != nil {
		return model.Low, fmt.Errorf("read signal file: %w", err)
	}
	if strings.TrimSpace(string(b)) == "1" {
		return model.High, nil
	}
	return model.Low, nil
}

// Set writes level through a rename so readers never see a partial file.
func (l *FileLine) Set(level model.Level) error {
	content := "0"
	if level == model.High {
		content = "1"
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".signal-*")
	if err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), signalFilePermission); err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	return nil
}

// String returns the file path.
func (l *FileLine) String() string { return l.path }

// Close is a no-op; the file stays for the next run.
func (l *FileLine) Close() error { return nil }
