package reaper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// ReapParams asks for one table to be swept below a timestamp.
type ReapParams struct {
	Table  string `json:"table"`
	Before uint64 `json:"before"`
}

// ErrStopped is returned by Reap once the reaper is shutting down.
var ErrStopped = errors.New("reaper stopped")

// Reap queues p for the sweep loop. Requests are kept until swept, across restarts when the
// reaper has a path.
func (r *Reaper) Reap(ctx context.Context, p *ReapParams) error {
	if p.Table == "" || p.Before == 0 {
		return fmt.Errorf("sweep request needs a table and a timestamp: %+v", *p)
	}
	select {
	case r.collector <- *p:
		return nil
	case <-r.procCtx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record adds p to the pending requests and persists them.
func (r *Reaper) record(p ReapParams) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.pending = append(r.pending, p)
	if err := r.write(&p); err != nil {
		log.Error().Err(err).Msg("failed to persist sweep request")
	}
}

// drainPending sweeps every pending request, keeping the ones that fail for the next round.
func (r *Reaper) drainPending() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.pending) == 0 {
		return
	}

	var active []ReapParams
	removed := 0
	for _, p := range r.pending {
		if !r.store.TableExists(p.Table) {
			log.Warn().Str("table", p.Table).Msg("dropping sweep request for unknown table")
			continue
		}
		n, err := r.Sweep(r.procCtx, p.Table, p.Before)
		if err != nil {
			log.Error().Err(err).Str("table", p.Table).Msg("sweep failed, will retry")
			active = append(active, p)
			continue
		}
		removed += n
	}
	r.pending = active

	if err := r.rewriteLog(active); err != nil {
		log.Error().Err(err).Msg("failed to rewrite sweep log")
	}
	log.Info().Msgf("sweep requests complete: removed %d versions, %d requests remain",
		removed, len(active))
}

// write appends p to the sweep log.
func (r *Reaper) write(p *ReapParams) error {
	if r.filePath == "" {
		return nil
	}
	file, err := os.OpenFile(r.filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open sweep log: %w", err)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close sweep log")
		}
	}(file)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep request: %w", err)
	}
	if _, err = file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write sweep request: %w", err)
	}
	return nil
}

// loadPending reads the requests left in the sweep log by a previous run.
func (r *Reaper) loadPending() ([]ReapParams, error) {
	if r.filePath == "" {
		return nil, nil
	}
	file, err := os.Open(r.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []ReapParams
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p ReapParams
		if err := json.Unmarshal(line, &p); err != nil {
			log.Warn().Err(err).Msg("skipping unreadable sweep request")
			continue
		}
		entries = append(entries, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sweep log: %w", err)
	}
	return entries, nil
}

// rewriteLog replaces the sweep log with entries.
func (r *Reaper) rewriteLog(entries []ReapParams) error {
	if r.filePath == "" {
		return nil
	}
	file, err := os.OpenFile(r.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("failed to truncate sweep log: %w", err)
	}
	defer file.Close()

	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write active entry: %w", err)
		}
	}
	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync sweep log: %w", err)
	}
	return nil
}
