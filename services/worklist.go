package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// WorklistService answers Modality Worklist C-FIND queries from the
// worklist store. Every query reads the store afresh; matches are streamed
// as pending responses in store order and closed by one final status.
type WorklistService struct {
	reader         interfaces.WorklistReader
	stationAETitle string
	logger         zerolog.Logger
}

// NewWorklistService creates the query responder. stationAETitle, when set,
// is returned as Scheduled Station AE Title and used to match queries.
func NewWorklistService(reader interfaces.WorklistReader, stationAETitle string, logger zerolog.Logger) *WorklistService {
	return &WorklistService{
		reader:         reader,
		stationAETitle: stationAETitle,
		logger:         logger,
	}
}

// HandleDIMSE exists to satisfy interfaces.ServiceHandler; C-FIND always
// goes through HandleDIMSEStreaming.
func (s *WorklistService) HandleDIMSE(ctx context.Context, msg *types.Message, data []byte) (*types.Message, []byte, error) {
	return nil, nil, errors.New("worklist query requires a streaming responder")
}

// HandleDIMSEStreaming runs one worklist query.
func (s *WorklistService) HandleDIMSEStreaming(ctx context.Context, msg *types.Message, data []byte, responder interfaces.ResponseSender) error {
	started := time.Now()
	logger := s.logger.With().Uint16("message_id", msg.MessageID).Logger()

	if msg.AffectedSOPClassUID != "" && msg.AffectedSOPClassUID != types.ModalityWorklistInformationModelFind {
		logger.Warn().Str("sop_class", msg.AffectedSOPClassUID).Msg("C-FIND for unsupported information model")
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusSOPClassNotSupported, "only modality worklist queries are supported"), nil)
	}

	identifier, err := dicom.ParseDatasetWithTransferSyntax(data, msg.TransferSyntaxUID)
	var query *worklistQuery
	if err == nil {
		query, err = parseWorklistQuery(identifier)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Malformed worklist query identifier")
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusIdentifierMismatch, err.Error()), nil)
	}

	matches, err := s.match(ctx, msg.TransferSyntaxUID, query)
	if err != nil {
		logger.Error().Err(err).Msg("Worklist query failed")
		return responder.SendResponse(NewCFindErrorResponse(msg, types.StatusUnableToProcess, "worklist unavailable"), nil)
	}

	for _, match := range matches {
		if err := responder.SendResponse(NewCFindPendingResponse(msg), match); err != nil {
			return fmt.Errorf("failed to send worklist match: %w", err)
		}
	}

	logger.Info().
		Int("matches", len(matches)).
		Str("modality", query.filter.Modality).
		Str("date_from", query.filter.DateFrom).
		Str("date_to", query.filter.DateTo).
		Dur("duration", time.Since(started)).
		Msg("Worklist query answered")
	return responder.SendResponse(NewCFindSuccessResponse(msg), nil)
}

// match reads the store and encodes every matching entry up front, so a
// failure never follows pending responses.
func (s *WorklistService) match(ctx context.Context, transferSyntaxUID string, query *worklistQuery) ([][]byte, error) {
	if query.stationAETitle != "" && s.stationAETitle != "" && query.stationAETitle != s.stationAETitle {
		return nil, nil
	}

	entries, err := s.reader.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read worklist: %w", err)
	}

	var matches [][]byte
	for i := range entries {
		if !query.filter.Match(&entries[i]) {
			continue
		}
		encoded, err := dicom.EncodeDatasetWithTransferSyntax(buildWorklistItem(&entries[i], s.stationAETitle), transferSyntaxUID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, encoded)
	}
	return matches, nil
}
