package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/reaper/internal/model"
)

// maxLineSize bounds one match log line when reading.
const maxLineSize = 1024 * 1024

// MatchLog appends match records to a JSON Lines file. Appends from
// concurrent workers never interleave.
type MatchLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenMatchLog opens path for appending, creating it and its directory.
func OpenMatchLog(path string) (*MatchLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create match log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open match log: %w", err)
	}
	return &MatchLog{f: f, path: path}, nil
}

// Path returns the file path.
func (l *MatchLog) Path() string { return l.path }

// Append writes rec as one line.
func (l *MatchLog) Append(rec model.MatchRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode match record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("append match record: %w", err)
	}
	return nil
}

// Close closes the file.
func (l *MatchLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// ReadResult is the outcome of reading a match log.
type ReadResult struct {
	Records []model.MatchRecord

	// Skipped counts malformed or truncated lines.
	Skipped int
}

// ReadMatchLog reads every well-formed record from r. Malformed lines,
// including a partial trailing line left by a crash, are skipped.
func ReadMatchLog(r io.Reader) (ReadResult, error) {
	var res ReadResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.MatchRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.URL == "" {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read match log: %w", err)
	}
	return res, nil
}

// ReadMatchLogFile reads the match log at path. A missing file is empty.
func ReadMatchLogFile(path string) (ReadResult, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return ReadResult{}, nil
		}
		return ReadResult{}, err
	}
	defer f.Close()
	return ReadMatchLog(f)
}
