package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/parakeet/internal/domain/model"
)

const restName = "rest"

// Header is the first line of every event log.
var Header = []string{"timestamp", "id", "duration_s", "energy", "frequency_hz", "midi", "note"} //nolint:gochecknoglobals // column order

// FileStore appends events to a tab separated text log, one line per event.
type FileStore struct {
	path string
	sync bool

	mu    sync.Mutex
	f     *os.File
	w     *csv.Writer
	last  model.Event
	count int
	empty bool
}

// OpenFile opens or creates the log at path. An existing log is replayed so
// Last and Count survive a restart; unreadable rows are ignored.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{path: path, sync: true, empty: true}
	for _, opt := range opts {
		opt(s)
	}

	if existing, err := os.Open(path); err == nil {
		evs, _, rerr := ReadLog(existing)
		_ = existing.Close()
		if rerr != nil {
			return nil, fmt.Errorf("replay %s: %w", path, rerr)
		}
		if n := len(evs); n > 0 {
			s.last, s.count, s.empty = evs[n-1], n, false
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.f = f
	s.w = csv.NewWriter(f)
	s.w.Comma = '\t'

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := s.writeRow(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return s, nil
}

// Path returns the log location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Append(_ context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrClosed
	}
	if !s.empty && before(e.Timestamp, s.last.Timestamp) {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, e.Timestamp, s.last.Timestamp)
	}
	if err := s.writeRow(formatRow(e)); err != nil {
		return err
	}
	s.last, s.empty = e, false
	s.count++
	return nil
}

func (s *FileStore) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	if s.sync {
		if err := s.f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", s.path, err)
		}
	}
	return nil
}

// List re-reads the log and returns its newest limit events.
func (s *FileStore) List(_ context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	evs, _, err := ReadLog(f)
	if err != nil {
		return nil, err
	}
	return tail(evs, limit), nil
}

func (s *FileStore) Last(_ context.Context) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, !s.empty, nil
}

func (s *FileStore) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func formatRow(e model.Event) []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ID.String(),
		strconv.FormatFloat(e.PulseDuration, 'g', -1, 64),
		strconv.FormatFloat(e.Energy, 'g', -1, 64),
		strconv.FormatFloat(e.Note.Frequency, 'g', -1, 64),
		strconv.Itoa(e.Note.MIDI),
		e.Note.Name,
	}
}

func parseRow(row []string) (model.Event, error) {
	if len(row) != len(Header) {
		return model.Event{}, fmt.Errorf("want %d fields, got %d", len(Header), len(row))
	}
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return model.Event{}, err
	}
	id, err := uuid.Parse(row[1])
	if err != nil {
		return model.Event{}, err
	}
	floats := make([]float64, 3)
	for i := range floats {
		if floats[i], err = strconv.ParseFloat(row[2+i], 64); err != nil {
			return model.Event{}, err
		}
	}
	midi, err := strconv.Atoi(row[5])
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:            id,
		Timestamp:     ts,
		PulseDuration: floats[0],
		Energy:        floats[1],
		Note: model.Note{
			Frequency: floats[2],
			MIDI:      midi,
			Name:      row[6],
			Rest:      row[6] == restName,
		},
	}, nil
}

// ReadLog parses an event log. Rows of the wrong width or with unparsable
// values are skipped and counted. Logs starting with the older two column
// "time energy" header are read as duration/energy pairs; those events get
// ids derived from their line and no timestamp.
func ReadLog(r io.Reader) ([]model.Event, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var (
		evs     []model.Event
		skipped int
		legacy  bool
		line    int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return evs, skipped, nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return evs, skipped, fmt.Errorf("read log: %w", err)
		}
		if line == 1 {
			legacy = isLegacyHeader(row)
			if legacy || row[0] == Header[0] {
				continue
			}
		}

		var e model.Event
		if legacy {
			e, err = parseLegacyRow(row, line)
		} else {
			e, err = parseRow(row)
		}
		if err != nil {
			skipped++
			continue
		}
		evs = append(evs, e)
	}
}

func isLegacyHeader(row []string) bool {
	fields := strings.Fields(strings.Join(row, " "))
	return len(fields) >= 2 && fields[0] == "time" && fields[1] == "energy"
}

func parseLegacyRow(row []string, line int) (model.Event, error) {
	fields := strings.Fields(strings.Join(row, " "))
	if len(fields) < 2 || len(fields) > 3 {
		return model.Event{}, fmt.Errorf("want 2 or 3 fields, got %d", len(fields))
	}
	d, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Event{}, err
	}
	energy, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", line, strings.Join(fields, " ")))),
		PulseDuration: d,
		Energy:        energy,
	}, nil
}
