package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Enqueuer accepts appointment ids for asynchronous single-record sync.
type Enqueuer interface {
	Enqueue(appointmentID int64) error
}

// Listener turns Postgres NOTIFY messages on a channel into single-record
// sync requests. The notification payload is the appointment id.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	target  Enqueuer
	logger  zerolog.Logger
}

// NewListener creates a listener for channel.
func NewListener(pool *pgxpool.Pool, channel string, target Enqueuer, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:    pool,
		channel: channel,
		target:  target,
		logger:  logger.With().Str("channel", channel).Logger(),
	}
}

// Start listens until ctx is done. A lost connection is re-established after
// retry; there is no backoff beyond that fixed wait.
func (l *Listener) Start(ctx context.Context, retry time.Duration) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Error().Err(err).Dur("retry", retry).Msg("Booking listener stopped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Info().Msg("Listening for new bookings")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(n.Payload)
	}
}

func (l *Listener) handle(payload string) {
	id, err := ParseAppointmentID(payload)
	if err != nil {
		l.logger.Warn().Str("payload", payload).Err(err).Msg("Ignoring malformed booking notification")
		return
	}
	if err := l.target.Enqueue(id); err != nil {
		l.logger.Error().Err(err).Int64("appointment_id", id).Msg("Failed to enqueue single-record sync")
	}
}

// ParseAppointmentID parses a positive appointment id.
func ParseAppointmentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid appointment id %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid appointment id %d", id)
	}
	return id, nil
}
