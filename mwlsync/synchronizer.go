// Package mwlsync keeps the worklist store in step with the scheduling
// database: periodic full refreshes plus single-record syncs fired by new
// bookings.
package mwlsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/source"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// Extractor produces worklist entries from the scheduling store.
type Extractor interface {
	ExtractAll(ctx context.Context) ([]worklist.Entry, error)
	ExtractOne(ctx context.Context, appointmentID int64) (*worklist.Entry, error)
}

// Store is the part of the worklist store the synchronizer writes through.
type Store interface {
	Upsert(ctx context.Context, e *worklist.Entry) (int64, error)
	ReplaceAll(ctx context.Context, entries []worklist.Entry) (int, error)
}

// Pass modes
const (
	ModeFull   = "full"
	ModeSingle = "single"
)

// PassStats describes one synchronization pass.
type PassStats struct {
	Mode          string    `json:"mode"`
	AppointmentID int64     `json:"appointment_id,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Entries       int       `json:"entries"`
	Error         string    `json:"error,omitempty"`
}

// Stats summarizes synchronizer activity since start.
type Stats struct {
	LastFull       *PassStats `json:"last_full,omitempty"`
	LastSingle     *PassStats `json:"last_single,omitempty"`
	FullPasses     int64      `json:"full_passes"`
	FullFailures   int64      `json:"full_failures"`
	SinglePasses   int64      `json:"single_passes"`
	SingleFailures int64      `json:"single_failures"`
	SingleSkipped  int64      `json:"single_skipped"`
}

// Synchronizer runs extraction and writes the result to the store.
type Synchronizer struct {
	extractor Extractor
	store     Store
	logger    zerolog.Logger

	// serializes full refreshes; single-record syncs never take it
	fullMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// New creates a synchronizer.
func New(extractor Extractor, store Store, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		extractor: extractor,
		store:     store,
		logger:    logger.With().Str("component", "mwlsync").Logger(),
	}
}

// FullRefresh rebuilds the store from the current source snapshot and
// returns the number of entries written. Extraction happens before anything
// is cleared, and the clear plus rebuild is a single store transaction, so a
// failed pass leaves the previous worklist in place.
func (s *Synchronizer) FullRefresh(ctx context.Context) (int, error) {
	s.fullMu.Lock()
	defer s.fullMu.Unlock()

	pass := PassStats{Mode: ModeFull, StartedAt: time.Now()}

	n, err := s.fullRefresh(ctx)
	pass.FinishedAt = time.Now()
	pass.Entries = n
	if err != nil {
		pass.Error = err.Error()
	}
	s.record(pass, err, false)

	if err != nil {
		s.logger.Error().Err(err).Dur("duration", pass.FinishedAt.Sub(pass.StartedAt)).Msg("Full worklist refresh failed")
		return 0, err
	}
	s.logger.Info().Int("entries", n).Dur("duration", pass.FinishedAt.Sub(pass.StartedAt)).Msg("Full worklist refresh complete")
	return n, nil
}

func (s *Synchronizer) fullRefresh(ctx context.Context) (int, error) {
	entries, err := s.extractor.ExtractAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	n, err := s.store.ReplaceAll(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("replace worklist: %w", err)
	}
	return n, nil
}

// SyncOne upserts the entry for a single appointment. An appointment that is
// not in scope is skipped and returns a nil entry without error.
func (s *Synchronizer) SyncOne(ctx context.Context, appointmentID int64) (*worklist.Entry, error) {
	pass := PassStats{Mode: ModeSingle, AppointmentID: appointmentID, StartedAt: time.Now()}
	logger := s.logger.With().Int64("appointment_id", appointmentID).Logger()

	entry, err := s.extractor.ExtractOne(ctx, appointmentID)
	if errors.Is(err, source.ErrOutOfScope) {
		pass.FinishedAt = time.Now()
		s.record(pass, nil, true)
		logger.Debug().Msg("Appointment not in worklist scope")
		return nil, nil
	}
	if err == nil {
		_, err = s.store.Upsert(ctx, entry)
	}

	pass.FinishedAt = time.Now()
	if err != nil {
		err = fmt.Errorf("sync appointment %d: %w", appointmentID, err)
		pass.Error = err.Error()
		s.record(pass, err, false)
		return nil, err
	}

	pass.Entries = 1
	s.record(pass, nil, false)
	logger.Info().Str("accession_number", entry.AccessionNumber).Msg("Worklist entry synced")
	return entry, nil
}

func (s *Synchronizer) record(pass PassStats, err error, skipped bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	switch pass.Mode {
	case ModeFull:
		s.stats.LastFull = &pass
		s.stats.FullPasses++
		if err != nil {
			s.stats.FullFailures++
		}
	case ModeSingle:
		s.stats.LastSingle = &pass
		s.stats.SinglePasses++
		if err != nil {
			s.stats.SingleFailures++
		}
		if skipped {
			s.stats.SingleSkipped++
		}
	}
}

// Stats returns a snapshot of the pass counters.
func (s *Synchronizer) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	out := s.stats
	if out.LastFull != nil {
		last := *out.LastFull
		out.LastFull = &last
	}
	if out.LastSingle != nil {
		last := *out.LastSingle
		out.LastSingle = &last
	}
	return out
}
