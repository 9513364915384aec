package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// mockHandler implements interfaces.ServiceHandler
type mockHandler struct {
	err   error
	calls int
}

func (m *mockHandler) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return &types.Message{
		CommandField:              types.ResponseCommandFor(msg.CommandField),
		MessageIDBeingRespondedTo: msg.MessageID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    types.StatusSuccess,
	}, nil, nil
}

// mockStreamingHandler implements interfaces.StreamingServiceHandler
type mockStreamingHandler struct {
	mockHandler
	streamed int
}

func (m *mockStreamingHandler) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, responder interfaces.ResponseSender) error {
	m.streamed++
	if err := responder.SendResponse(NewCFindPendingResponse(msg), []byte{0x01, 0x02}); err != nil {
		return err
	}
	return responder.SendResponse(NewCFindSuccessResponse(msg), nil)
}

// mockResponder implements interfaces.ResponseSender
type mockResponder struct {
	responses []*types.Message
	datasets  [][]byte
	err       error
}

func (m *mockResponder) SendResponse(msg *types.Message, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.responses = append(m.responses, msg)
	m.datasets = append(m.datasets, data)
	return nil
}

func TestRegistry_RegisterHandler(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	if registry.HasHandler(types.CEchoRQ) {
		t.Fatal("Expected empty registry")
	}

	registry.RegisterHandler(types.CEchoRQ, &mockHandler{})

	if !registry.HasHandler(types.CEchoRQ) {
		t.Error("Expected C-ECHO handler to be registered")
	}
	if registry.HasHandler(types.CFindRQ) {
		t.Error("Expected no C-FIND handler")
	}
}

func TestRegistry_HandleDIMSE(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	handler := &mockHandler{}
	registry.RegisterHandler(types.CEchoRQ, handler)

	msg := &types.Message{CommandField: types.CEchoRQ, MessageID: 5}
	resp, _, err := registry.HandleDIMSE(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("HandleDIMSE() error = %v", err)
	}
	if handler.calls != 1 {
		t.Errorf("Expected 1 handler call, got %d", handler.calls)
	}
	if resp.MessageIDBeingRespondedTo != 5 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 5", resp.MessageIDBeingRespondedTo)
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	msg := &types.Message{CommandField: types.CFindRQ, MessageID: 9}

	resp, _, err := registry.HandleDIMSE(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("HandleDIMSE() error = %v", err)
	}
	if resp.Status != types.StatusUnrecognizedOperation {
		t.Errorf("Status = 0x%04x, want 0x0211", resp.Status)
	}
	if resp.CommandField != types.CFindRSP {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", resp.CommandField, types.CFindRSP)
	}

	responder := &mockResponder{}
	if err := registry.HandleDIMSEStreaming(context.Background(), msg, nil, responder); err != nil {
		t.Fatalf("HandleDIMSEStreaming() error = %v", err)
	}
	if len(responder.responses) != 1 || responder.responses[0].Status != types.StatusUnrecognizedOperation {
		t.Errorf("Expected one 0x0211 response, got %d", len(responder.responses))
	}
}

func TestRegistry_HandleDIMSEStreaming(t *testing.T) {
	t.Run("streaming handler", func(t *testing.T) {
		registry := NewRegistry(zerolog.Nop())
		handler := &mockStreamingHandler{}
		registry.RegisterHandler(types.CFindRQ, handler)

		responder := &mockResponder{}
		msg := &types.Message{CommandField: types.CFindRQ, MessageID: 2}
		if err := registry.HandleDIMSEStreaming(context.Background(), msg, nil, responder); err != nil {
			t.Fatalf("HandleDIMSEStreaming() error = %v", err)
		}
		if handler.streamed != 1 || handler.calls != 0 {
			t.Errorf("Expected streaming path only, got streamed=%d calls=%d", handler.streamed, handler.calls)
		}
		if len(responder.responses) != 2 {
			t.Fatalf("Expected 2 responses, got %d", len(responder.responses))
		}
		if responder.responses[1].Status != types.StatusSuccess {
			t.Errorf("Final status = 0x%04x, want success", responder.responses[1].Status)
		}
	})

	t.Run("falls back to single response", func(t *testing.T) {
		registry := NewRegistry(zerolog.Nop())
		handler := &mockHandler{}
		registry.RegisterHandler(types.CEchoRQ, handler)

		responder := &mockResponder{}
		msg := &types.Message{CommandField: types.CEchoRQ, MessageID: 3}
		if err := registry.HandleDIMSEStreaming(context.Background(), msg, nil, responder); err != nil {
			t.Fatalf("HandleDIMSEStreaming() error = %v", err)
		}
		if len(responder.responses) != 1 {
			t.Fatalf("Expected 1 response, got %d", len(responder.responses))
		}
	})

	t.Run("handler error is returned", func(t *testing.T) {
		registry := NewRegistry(zerolog.Nop())
		wantErr := errors.New("boom")
		registry.RegisterHandler(types.CEchoRQ, &mockHandler{err: wantErr})

		err := registry.HandleDIMSEStreaming(context.Background(), &types.Message{CommandField: types.CEchoRQ}, nil, &mockResponder{})
		if !errors.Is(err, wantErr) {
			t.Errorf("Expected %v, got %v", wantErr, err)
		}
	})
}
