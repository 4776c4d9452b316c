// Package readinglog appends gauge readings to a CSV file.
//
// The file is append-only. Each row is encoded in memory and written with a
// single Write call on an O_APPEND descriptor, so rows from concurrent writers
// never interleave.
package readinglog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ironsheep/oil-level-monitor/internal/gauge"
)

// TimestampLayout formats the first column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is written as the first row of a new log.
var Header = []string{"Timestamp", "Percentage", "Snapshot", "Raw Result"}

// ErrUnparsedReading is returned when appending a reading without a percentage.
var ErrUnparsedReading = errors.New("reading has no percentage")

// Row is one parsed line of the log.
type Row struct {
	Timestamp  time.Time
	Percentage int
	Snapshot   string
	RawResult  string
}

// Log is an append-only CSV reading log.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a log writing to path. The file and its directory are created
// on the first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes one row for r. The header is written first when the file is
// new or empty. Newlines in the raw model answer are flattened to spaces.
func (l *Log) Append(r *gauge.Reading) error {
	if r == nil || r.Percentage == nil {
		return ErrUnparsedReading
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open reading log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat reading log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("failed to encode header: %w", err)
		}
	}
	record := []string{
		r.Timestamp.Format(TimestampLayout),
		strconv.Itoa(*r.Percentage),
		r.SourceImagePath,
		flatten(r.RawText),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append reading: %w", err)
	}
	return nil
}

// ReadAll parses every row of the log at path. A missing file yields no rows.
func ReadAll(path string) ([]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open reading log: %w", err)
	}
	defer f.Close()

	return parse(bufio.NewReader(f))
}

// Tail returns the last n rows, oldest first.
func Tail(path string, n int) ([]Row, error) {
	rows, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

func parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	var rows []Row
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse reading log: %w", err)
		}
		if line == 1 && rec[0] == Header[0] {
			continue
		}

		ts, err := time.ParseInLocation(TimestampLayout, rec[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q: %w", line, rec[0], err)
		}
		pct, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid percentage %q: %w", line, rec[1], err)
		}
		rows = append(rows, Row{Timestamp: ts, Percentage: pct, Snapshot: rec[2], RawResult: rec[3]})
	}
	return rows, nil
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// Record appends r; it lets the log serve as the pipeline's durable recorder.
func (l *Log) Record(_ context.Context, r *gauge.Reading, _ gauge.Status) error {
	return l.Append(r)
}
