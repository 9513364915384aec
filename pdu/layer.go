package pdu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/rs/zerolog"

	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/interfaces"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Layer handles the DICOM Upper Layer Protocol for one accepted connection
type Layer struct {
	conn           net.Conn
	associationCtx *types.AssociationContext
	dimseHandler   interfaces.DIMSEHandler
	serverAETitle  string
	strictCalledAE bool
	readTimeout    time.Duration
	logger         zerolog.Logger
}

// LayerOption configures a Layer
type LayerOption func(*Layer)

// WithStrictCalledAE rejects associations whose called AE title is not ours.
func WithStrictCalledAE(strict bool) LayerOption {
	return func(l *Layer) { l.strictCalledAE = strict }
}

// WithIdleTimeout sets the read deadline applied before every PDU read.
func WithIdleTimeout(d time.Duration) LayerOption {
	return func(l *Layer) { l.readTimeout = d }
}

// NewLayer creates a new PDU layer handler
func NewLayer(conn net.Conn, dimseHandler interfaces.DIMSEHandler, serverAETitle string, logger zerolog.Logger, opts ...LayerOption) *Layer {
	l := &Layer{
		conn:          conn,
		dimseHandler:  dimseHandler,
		serverAETitle: serverAETitle,
		logger:        logger.With().Str("remote_addr", conn.RemoteAddr().String()).Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Association returns the negotiated association, or nil before negotiation.
func (p *Layer) Association() *types.AssociationContext {
	return p.associationCtx
}

// HandleConnection manages the complete DICOM connection lifecycle
func (p *Layer) HandleConnection(ctx context.Context) error {
	defer p.conn.Close()
	p.logger.Debug().Msg("New DICOM connection")

	if err := p.handleAssociationPhase(ctx); err != nil {
		return fmt.Errorf("association failed: %w", err)
	}

	for {
		if ctx.Err() != nil {
			_ = WriteAbort(p.conn, 0x00, 0x00)
			return ctx.Err()
		}

		pdu, err := p.readPDU(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = WriteAbort(p.conn, 0x00, 0x00)
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				p.logger.Info().Msg("Connection closed by peer")
				return nil
			}
			return fmt.Errorf("read PDU: %w", err)
		}

		done, err := p.handlePDU(ctx, pdu)
		if err != nil {
			_ = WriteAbort(p.conn, 0x02, 0x00)
			return fmt.Errorf("error handling PDU: %w", err)
		}
		if done {
			return nil
		}
	}
}

// readPDU arms the idle deadline and reads one PDU. Shutdown unblocks reads
// by pulling the deadline to now, so ctx is checked after arming: a
// cancellation that lands while arming must not be overridden.
func (p *Layer) readPDU(ctx context.Context) (*types.PDU, error) {
	if p.readTimeout > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(p.readTimeout)); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadPDU(p.conn)
}

// handlePDU routes PDUs to appropriate handlers; done is set when the association ends
func (p *Layer) handlePDU(ctx context.Context, pdu *types.PDU) (bool, error) {
	p.logger.Debug().Str("type", fmt.Sprintf("0x%02x", pdu.Type)).Uint32("length", pdu.Length).Msg("Received PDU")

	switch pdu.Type {
	case types.TypePDataTF:
		return false, p.handlePDataTF(ctx, pdu)
	case types.TypeReleaseRQ:
		if err := WriteReleaseRP(p.conn); err != nil {
			return true, fmt.Errorf("failed to send A-RELEASE-RP: %w", err)
		}
		p.logger.Debug().Msg("Association released")
		return true, nil
	case types.TypeAbort:
		abort := ParseAbort(pdu.Data)
		p.logger.Info().Err(abort).Msg("Received A-ABORT")
		return true, nil
	default:
		return true, dicomerrors.NewPDUError(pdu.Type, "unexpected PDU during association")
	}
}

func (p *Layer) handleAssociationPhase(ctx context.Context) error {
	pdu, err := p.readPDU(ctx)
	if err != nil {
		return fmt.Errorf("failed to read association request: %w", err)
	}

	if pdu.Type != types.TypeAssociateRQ {
		return dicomerrors.NewPDUError(pdu.Type, "expected A-ASSOCIATE-RQ")
	}

	rq, err := ParseAssociateRQ(pdu.Data)
	if err != nil {
		_ = WriteAbort(p.conn, 0x02, 0x02)
		return err
	}

	p.associationCtx = &types.AssociationContext{
		CalledAETitle:    rq.CalledAETitle,
		CallingAETitle:   rq.CallingAETitle,
		MaxPDULength:     rq.MaxPDULength,
		PresentationCtxs: make(map[byte]*types.PresentationContext),
	}

	if rejection := p.checkAssociation(rq); rejection != nil {
		if err := WritePDU(p.conn, types.TypeAssociateRJ, EncodeAssociateRJ(rejection)); err != nil {
			return fmt.Errorf("failed to send A-ASSOCIATE-RJ: %w", err)
		}
		p.logger.Warn().Str("calling_ae", rq.CallingAETitle).Str("called_ae", rq.CalledAETitle).Err(rejection).Msg("Association rejected")
		return rejection
	}

	var contexts []*types.PresentationContext
	accepted := 0
	for _, proposed := range rq.PresentationContexts {
		pc := negotiate(proposed)
		p.associationCtx.PresentationCtxs[pc.ID] = pc
		contexts = append(contexts, pc)
		if pc.Result == types.PresentationAccepted {
			accepted++
		}
		p.logger.Debug().
			Uint8("context_id", pc.ID).
			Str("abstract_syntax", types.GetSOPClassInfo(pc.AbstractSyntax).Name).
			Str("transfer_syntax", pc.TransferSyntax).
			Uint8("result", pc.Result).
			Msg("Presentation context negotiated")
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].ID < contexts[j].ID })

	if accepted == 0 {
		rejection := dicomerrors.NewAssociationError(dicomerrors.RejectSourceServiceUser, dicomerrors.RejectReasonNoReasonGiven,
			"no acceptable presentation context")
		if err := WritePDU(p.conn, types.TypeAssociateRJ, EncodeAssociateRJ(rejection)); err != nil {
			return fmt.Errorf("failed to send A-ASSOCIATE-RJ: %w", err)
		}
		return rejection
	}

	if err := WritePDU(p.conn, types.TypeAssociateAC, EncodeAssociateAC(p.associationCtx, contexts, types.DefaultMaxPDULength)); err != nil {
		return fmt.Errorf("failed to send A-ASSOCIATE-AC: %w", err)
	}

	p.logger.Info().
		Str("calling_ae", rq.CallingAETitle).
		Str("called_ae", rq.CalledAETitle).
		Int("proposed", len(rq.PresentationContexts)).
		Int("accepted", accepted).
		Uint32("max_pdu_length", rq.MaxPDULength).
		Msg("Association accepted")
	return nil
}

func (p *Layer) checkAssociation(rq *AssociateRQ) *dicomerrors.AssociationError {
	if rq.ApplicationContext != types.ApplicationContextUID {
		return dicomerrors.NewAssociationError(dicomerrors.RejectSourceServiceUser,
			dicomerrors.RejectReasonApplicationContextNotSupported,
			fmt.Sprintf("application context %q not supported", rq.ApplicationContext))
	}
	if p.strictCalledAE && rq.CalledAETitle != p.serverAETitle {
		return dicomerrors.NewAssociationError(dicomerrors.RejectSourceServiceUser,
			dicomerrors.RejectReasonCalledAETitleNotRecognized,
			fmt.Sprintf("called AE %q is not %q", rq.CalledAETitle, p.serverAETitle))
	}
	return nil
}

func negotiate(proposed ProposedContext) *types.PresentationContext {
	pc := &types.PresentationContext{
		ID:             proposed.ID,
		AbstractSyntax: proposed.AbstractSyntax,
		Result:         types.PresentationAbstractSyntaxRejected,
	}
	if !types.IsSupportedAbstractSyntax(proposed.AbstractSyntax) {
		return pc
	}
	pc.TransferSyntax = types.SelectTransferSyntax(proposed.TransferSyntaxes)
	if pc.TransferSyntax == "" {
		pc.Result = types.PresentationTransferSyntaxesRejected
		return pc
	}
	pc.Result = types.PresentationAccepted
	return pc
}

// handlePDataTF forwards every PDV of a P-DATA-TF PDU to the DIMSE layer
func (p *Layer) handlePDataTF(ctx context.Context, pdu *types.PDU) error {
	pdvs, err := ParsePDataTF(pdu.Data)
	if err != nil {
		return err
	}

	for _, pdv := range pdvs {
		pc, ok := p.associationCtx.PresentationCtxs[pdv.ContextID]
		if !ok || pc.Result != types.PresentationAccepted {
			return fmt.Errorf("%w: presentation context %d was not accepted", dicomerrors.ErrNoPresentationCtx, pdv.ContextID)
		}
		if err := p.dimseHandler.HandleDIMSEMessage(ctx, pdv.ContextID, pdv.Control, pdv.Data, p); err != nil {
			return err
		}
	}
	return nil
}

// SendDIMSEResponse sends a DIMSE response via P-DATA-TF
func (p *Layer) SendDIMSEResponse(presContextID byte, commandData []byte) error {
	return p.SendDIMSEResponseWithDataset(presContextID, commandData, nil)
}

// SendDIMSEResponseWithDataset sends a command followed by an optional dataset,
// fragmented to the peer's maximum PDU length
func (p *Layer) SendDIMSEResponseWithDataset(presContextID byte, commandData []byte, datasetData []byte) error {
	maxPDU := uint32(0)
	if p.associationCtx != nil {
		maxPDU = p.associationCtx.MaxPDULength
	}

	if err := WritePDataTF(p.conn, presContextID, maxPDU, commandData, true); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	if len(datasetData) > 0 {
		if err := WritePDataTF(p.conn, presContextID, maxPDU, datasetData, false); err != nil {
			return fmt.Errorf("failed to send dataset: %w", err)
		}
	}
	return nil
}

// GetTransferSyntax returns the negotiated transfer syntax for the given
// presentation context, or "" when the context is unknown.
func (p *Layer) GetTransferSyntax(presContextID byte) string {
	if p.associationCtx == nil {
		return ""
	}
	if pc, ok := p.associationCtx.PresentationCtxs[presContextID]; ok {
		return pc.TransferSyntax
	}
	return ""
}
