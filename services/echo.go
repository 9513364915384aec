// Package services implements the DIMSE services of the worklist SCP:
// verification (C-ECHO) and the modality worklist query (C-FIND).
package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/types"
)

// EchoService handles C-ECHO verification requests. Modalities use it to
// check connectivity before issuing worklist queries; it always succeeds.
type EchoService struct {
	logger zerolog.Logger
}

// NewEchoService creates a new C-ECHO service instance.
func NewEchoService(logger zerolog.Logger) *EchoService {
	return &EchoService{logger: logger}
}

// HandleDIMSE answers a C-ECHO-RQ with success.
func (s *EchoService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	s.logger.Info().Uint16("message_id", msg.MessageID).Msg("C-ECHO request successful")
	return NewCEchoResponse(msg, types.StatusSuccess), nil, nil
}
