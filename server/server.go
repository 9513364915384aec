// Package server runs the DICOM listener of the worklist SCP: one
// goroutine per association, each with its own PDU layer and DIMSE service.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/dimse"
	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/pdu"
)

// Option configures a Server instance.
type Option func(*Server)

// WithLogger overrides the logger used by the server.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithReadTimeout sets how long an association may stay idle between PDUs.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the deadline applied to every write on a connection.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.WriteTimeout = timeout
	}
}

// WithStrictCalledAE rejects associations addressed to another AE title.
func WithStrictCalledAE(strict bool) Option {
	return func(s *Server) {
		s.StrictCalledAE = strict
	}
}

// Server exposes a DICOM listener that wires the DIMSE and PDU layers.
type Server struct {
	AETitle        string
	Handler        interfaces.ServiceHandler
	Logger         zerolog.Logger
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	StrictCalledAE bool
}

// New builds a Server with the provided AE title and handler.
func New(aeTitle string, handler interfaces.ServiceHandler, opts ...Option) *Server {
	srv := &Server{AETitle: aeTitle, Handler: handler, Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ListenAndServe listens on the given address and serves until the context is done or an error occurs.
func ListenAndServe(ctx context.Context, address, aeTitle string, handler interfaces.ServiceHandler, opts ...Option) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	srv := New(aeTitle, handler, opts...)
	return srv.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is cancelled or an
// unrecoverable error occurs. Open associations are aborted on shutdown
// and waited for before Serve returns.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("server: listener is required")
	}
	if s == nil {
		return errors.New("server: server is nil")
	}
	if s.Handler == nil {
		return errors.New("server: handler is required")
	}
	if s.AETitle == "" {
		return errors.New("server: AE title is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	s.Logger.Info().
		Str("address", listener.Addr().String()).
		Str("ae_title", s.AETitle).
		Msg("DICOM server listening")

	var (
		wg       sync.WaitGroup
		serveErr error
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.Logger.Warn().Err(err).Msg("Accept timeout")
				continue
			}
			serveErr = err
			break
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.handleConnection(ctx, c)
		}(conn)
	}

	wg.Wait()

	if serveErr != nil {
		return serveErr
	}

	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	logger := s.Logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("Accepted DICOM connection")

	if s.WriteTimeout > 0 {
		conn = &writeDeadlineConn{Conn: conn, timeout: s.WriteTimeout}
	}

	// Unblock a pending read when the server shuts down.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	service := dimse.NewService(s.Handler, logger)
	layer := pdu.NewLayer(conn, service, s.AETitle, s.Logger,
		pdu.WithStrictCalledAE(s.StrictCalledAE),
		pdu.WithIdleTimeout(s.ReadTimeout),
	)

	if err := layer.HandleConnection(ctx); err != nil && ctx.Err() == nil {
		logger.Warn().Err(err).Msg("DICOM connection ended")
		return
	}

	event := logger.Info()
	if assoc := layer.Association(); assoc != nil {
		event = event.Str("calling_ae", assoc.CallingAETitle)
	}
	event.Msg("DICOM connection closed")
}

// writeDeadlineConn refreshes the write deadline before each write so a
// stalled peer cannot hold a worker forever.
type writeDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *writeDeadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
