package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Registry routes incoming DIMSE messages to the handler registered for
// their command field.
//
// Example usage:
//
//	registry := services.NewRegistry(logger)
//	registry.RegisterHandler(types.CEchoRQ, services.NewEchoService(logger))
//	registry.RegisterHandler(types.CFindRQ, services.NewWorklistService(store, "", logger))
type Registry struct {
	handlers map[uint16]interfaces.ServiceHandler
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[uint16]interfaces.ServiceHandler),
		logger:   logger,
	}
}

// RegisterHandler registers a handler for a DIMSE command, replacing any
// previous one.
func (r *Registry) RegisterHandler(commandField uint16, handler interfaces.ServiceHandler) {
	r.handlers[commandField] = handler
}

// HasHandler returns true if a handler is registered for the given command field.
func (r *Registry) HasHandler(commandField uint16) bool {
	_, ok := r.handlers[commandField]
	return ok
}

// HandleDIMSE routes a single-response message. Unknown commands are
// answered with an "unrecognized operation" failure.
func (r *Registry) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	handler, ok := r.handlers[msg.CommandField]
	if !ok {
		r.logUnsupported(msg)
		return CreateErrorResponse(msg, types.StatusUnrecognizedOperation), nil, nil
	}
	return handler.HandleDIMSE(ctx, msg, data)
}

// HandleDIMSEStreaming routes a message to a streaming handler when the
// registered handler supports it and falls back to HandleDIMSE otherwise.
func (r *Registry) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, responder interfaces.ResponseSender) error {
	r.logger.Debug().
		Str("command_field", fmt.Sprintf("0x%04x", msg.CommandField)).
		Uint16("message_id", msg.MessageID).
		Msg("Routing DIMSE message")

	handler, ok := r.handlers[msg.CommandField]
	if !ok {
		r.logUnsupported(msg)
		return responder.SendResponse(CreateErrorResponse(msg, types.StatusUnrecognizedOperation), nil)
	}

	if streamingHandler, ok := handler.(interfaces.StreamingServiceHandler); ok {
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, data, responder)
	}

	responseMsg, responseData, err := handler.HandleDIMSE(ctx, msg, data)
	if err != nil {
		return err
	}
	return responder.SendResponse(responseMsg, responseData)
}

func (r *Registry) logUnsupported(msg *types.Message) {
	r.logger.Warn().
		Str("command_field", fmt.Sprintf("0x%04x", msg.CommandField)).
		Uint16("message_id", msg.MessageID).
		Msg("No handler registered for DIMSE command")
}

// CreateErrorResponse creates a failure response for req carrying status.
func CreateErrorResponse(req *types.Message, status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.ResponseCommandFor(req.CommandField),
		MessageIDBeingRespondedTo: req.MessageID,
		AffectedSOPClassUID:       req.AffectedSOPClassUID,
		CommandDataSetType:        types.NoDataSet,
		Status:                    status,
	}
}
