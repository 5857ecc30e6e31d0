package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/litetable/litetable-kvs/internal/litetable"
)

const (
	defaultWalDirectory = "wal"
	defaultWALFile      = "wal.log"
)

// Op is the kind of mutation an Entry records.
type Op string

const (
	OpCreateTable Op = "create_table"
	OpPut         Op = "put"
	OpDelete      Op = "delete"
)

// VersionRef is one version named by a delete entry.
type VersionRef struct {
	Row       []byte `json:"row"`
	Column    []byte `json:"column"`
	Timestamp uint64 `json:"timestamp"`
}

// Entry represents a Write-Ahead Log entry for one mutation of the store.
type Entry struct {
	Op        Op                    `json:"op"`
	Table     string                `json:"table"`
	Cells     []litetable.CellValue `json:"cells,omitempty"`
	Versions  []VersionRef          `json:"versions,omitempty"`
	Timestamp uint64                `json:"timestamp,omitempty"`
}

type Manager struct {
	mu      sync.RWMutex
	walFile *os.File
	path    string
}

type Config struct {
	// Path where the WAL directory will be saved
	Path string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("wal path cannot be empty"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	walPath := filepath.Join(cfg.Path, defaultWalDirectory, defaultWALFile)
	walDir := filepath.Dir(walPath)
	if err := os.MkdirAll(walDir, 0750); err != nil {
		return nil, errors.New("failed to create WAL directory: " + err.Error())
	}

	// Open WAL file with appropriate permissions
	file, err := os.OpenFile(walPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, errors.New("failed to open WAL file: " + err.Error())
	}

	return &Manager{
		walFile: file,
		path:    walPath,
	}, nil
}

// Apply appends the entry to the WAL file as one JSON line. A mutation is only applied to the
// store after Apply returns.
func (m *Manager) Apply(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	jsonData, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err = m.walFile.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}

	return nil
}

// Replay calls fn for every entry in the log, oldest first. A torn final line, left by a crash
// in the middle of a write, ends the replay without an error.
func (m *Manager) Replay(fn func(e *Entry) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("failed to open WAL for replay: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// a line without its newline never finished writing
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read WAL: %w", err)
		}

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("corrupt WAL entry: %w", err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
}

// Close flushes and closes the WAL file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.walFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}
	return m.walFile.Close()
}

// Path returns the location of the WAL file
func (m *Manager) Path() string {
	return m.path
}
