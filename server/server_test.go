package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/client"
	"github.com/caio-sobreiro/mwlbridge/services"
	"github.com/caio-sobreiro/mwlbridge/types"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

type stubReader struct {
	entries []worklist.Entry
}

func (s *stubReader) GetAll(ctx context.Context) ([]worklist.Entry, error) {
	return s.entries, nil
}

func startServer(t *testing.T, opts ...Option) (string, context.CancelFunc, chan error) {
	t.Helper()

	registry := services.NewRegistry(zerolog.Nop())
	registry.RegisterHandler(types.CEchoRQ, services.NewEchoService(zerolog.Nop()))
	registry.RegisterHandler(types.CFindRQ, services.NewWorklistService(&stubReader{entries: []worklist.Entry{
		{AccessionNumber: "ACC000042", PatientName: "Nguyễn Thị Test", PatientID: "APPT42", Modality: "US", ScheduledDate: "20251102", ScheduledTime: "143000"},
	}}, "", zerolog.Nop()))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := New("MWL_SCP", registry, opts...)
	go func() { done <- srv.Serve(ctx, listener) }()
	t.Cleanup(cancel)
	return listener.Addr().String(), cancel, done
}

func TestServe_RequiresHandlerAndAETitle(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	tests := []struct {
		name string
		srv  *Server
	}{
		{"missing handler", New("MWL_SCP", nil)},
		{"missing AE title", New("", services.NewRegistry(zerolog.Nop()))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.srv.Serve(context.Background(), listener); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestServe_EchoAndFind(t *testing.T) {
	addr, _, _ := startServer(t, WithReadTimeout(5*time.Second), WithWriteTimeout(5*time.Second))

	assoc, err := client.Connect(addr, client.Config{CallingAETitle: "US_ROOM_1", CalledAETitle: "MWL_SCP"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer assoc.Close()

	echo, err := assoc.SendCEcho(1)
	if err != nil {
		t.Fatalf("SendCEcho() error = %v", err)
	}
	if echo.Status != types.StatusSuccess {
		t.Errorf("Echo status = 0x%04x, want success", echo.Status)
	}

	responses, err := assoc.SendCFind(&client.CFindRequest{MessageID: 2, Dataset: client.WorklistQuery("", "")})
	if err != nil {
		t.Fatalf("SendCFind() error = %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(responses))
	}
	if responses[0].Status != types.StatusPending || responses[1].Status != types.StatusSuccess {
		t.Errorf("Expected pending then success, got 0x%04x, 0x%04x", responses[0].Status, responses[1].Status)
	}
}

func TestServe_StrictCalledAE(t *testing.T) {
	addr, _, _ := startServer(t, WithStrictCalledAE(true))

	_, err := client.Connect(addr, client.Config{CallingAETitle: "US_ROOM_1", CalledAETitle: "ANY_SCP"})
	if err == nil {
		t.Fatal("Expected the association to be rejected")
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	_, cancel, done := startServer(t)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
