package dimse

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Service reassembles DIMSE messages for one association and routes them to
// the handler. It is not safe for concurrent use; the PDU layer calls it from
// the connection goroutine only.
type Service struct {
	handler     interfaces.ServiceHandler
	commandData []byte
	datasetData []byte
	currentMsg  *types.Message
	logger      zerolog.Logger
}

// responseHandler implements ResponseSender for streaming responses
type responseHandler struct {
	service       *Service
	presContextID byte
	pduLayer      interfaces.PDULayer
}

// SendResponse implements ResponseSender interface
func (r *responseHandler) SendResponse(msg *types.Message, data []byte) error {
	return r.service.sendDIMSEResponse(msg, data, r.presContextID, r.pduLayer)
}

// NewService creates a new DIMSE service with a handler
func NewService(handler interfaces.ServiceHandler, logger zerolog.Logger) *Service {
	return &Service{
		handler: handler,
		logger:  logger,
	}
}

// HandleDIMSEMessage accumulates command and dataset fragments and dispatches
// the message once it is complete.
func (d *Service) HandleDIMSEMessage(ctx context.Context, presContextID byte, msgCtrlHeader byte, data []byte, pduLayer interfaces.PDULayer) error {
	isCommand := msgCtrlHeader&0x01 != 0
	isLastFragment := msgCtrlHeader&0x02 != 0

	if isCommand {
		d.commandData = append(d.commandData, data...)
		if !isLastFragment {
			return nil
		}

		msg, err := DecodeCommand(d.commandData)
		d.commandData = nil
		if err != nil {
			return fmt.Errorf("failed to parse DIMSE command: %w", err)
		}
		msg.TransferSyntaxUID = pduLayer.GetTransferSyntax(presContextID)
		d.currentMsg = msg

		d.logger.Debug().
			Uint8("context_id", presContextID).
			Str("command_field", fmt.Sprintf("0x%04x", msg.CommandField)).
			Uint16("message_id", msg.MessageID).
			Msg("Received DIMSE command")

		if !msg.HasDataset() {
			return d.processCompleteMessage(ctx, presContextID, pduLayer)
		}
		return nil
	}

	if d.currentMsg == nil {
		return fmt.Errorf("%w: dataset fragment before command", dicomerrors.ErrInvalidMessage)
	}
	d.datasetData = append(d.datasetData, data...)
	if isLastFragment {
		return d.processCompleteMessage(ctx, presContextID, pduLayer)
	}
	return nil
}

// processCompleteMessage processes a complete DIMSE message (command + optional dataset)
func (d *Service) processCompleteMessage(ctx context.Context, presContextID byte, pduLayer interfaces.PDULayer) error {
	msg, dataset := d.currentMsg, d.datasetData
	d.currentMsg = nil
	d.datasetData = nil

	// Responses are sent synchronously, so a cancel can only arrive after
	// the operation it names has already completed.
	if msg.CommandField == types.CCancelRQ {
		d.logger.Debug().Uint16("message_id", msg.MessageIDBeingRespondedTo).Msg("Ignoring C-CANCEL for completed operation")
		return nil
	}

	if streamingHandler, ok := d.handler.(interfaces.StreamingServiceHandler); ok {
		responder := &responseHandler{
			service:       d,
			presContextID: presContextID,
			pduLayer:      pduLayer,
		}
		return streamingHandler.HandleDIMSEStreaming(ctx, msg, dataset, responder)
	}

	responseMsg, responseData, err := d.handler.HandleDIMSE(ctx, msg, dataset)
	if err != nil {
		return fmt.Errorf("service handler failed: %w", err)
	}
	return d.sendDIMSEResponse(responseMsg, responseData, presContextID, pduLayer)
}

func (d *Service) sendDIMSEResponse(msg *types.Message, data []byte, presContextID byte, pduLayer interfaces.PDULayer) error {
	if len(data) > 0 {
		msg.CommandDataSetType = types.DataSetPresent
	} else {
		msg.CommandDataSetType = types.NoDataSet
	}

	d.logger.Debug().
		Str("command_field", fmt.Sprintf("0x%04x", msg.CommandField)).
		Str("status", fmt.Sprintf("0x%04x", msg.Status)).
		Int("dataset_size", len(data)).
		Msg("Sending DIMSE response")

	return pduLayer.SendDIMSEResponseWithDataset(presContextID, EncodeCommand(msg), data)
}
