// Package client is a minimal DICOM requestor (SCU) for the worklist SCP:
// it opens an association, sends C-ECHO and Modality Worklist C-FIND, and
// releases. The mwl CLI probes and the server round-trip tests use it.
package client

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/pdu"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Association represents a client-side DICOM association
type Association struct {
	conn             net.Conn
	callingAETitle   string
	calledAETitle    string
	maxPDULength     uint32
	peerMaxPDU       uint32
	presentationCtxs map[byte]*PresentationContext
	logger           zerolog.Logger
}

// PresentationContext holds negotiated presentation context info
type PresentationContext struct {
	ID             byte
	AbstractSyntax string
	TransferSyntax string
	Accepted       bool
}

// Config holds client configuration
type Config struct {
	CallingAETitle            string
	CalledAETitle             string
	MaxPDULength              uint32
	ConnectTimeout            time.Duration // default: 30s
	Timeout                   time.Duration // deadline for the whole association (default: 60s)
	Logger                    *zerolog.Logger
	PreferredTransferSyntaxes []string // default: Explicit VR, Implicit VR
}

const defaultMaxPDULength = 16384

// proposed lists the abstract syntaxes offered, keyed by context id.
var proposed = []struct {
	id             byte
	abstractSyntax string
}{
	{1, types.VerificationSOPClass},
	{3, types.ModalityWorklistInformationModelFind},
}

// Connect dials address and negotiates an association.
func Connect(address string, config Config) (*Association, error) {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, dicomerrors.NewNetworkError("connect", err)
	}

	assoc, err := Associate(conn, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return assoc, nil
}

// Associate negotiates an association over an already open connection.
func Associate(conn net.Conn, config Config) (*Association, error) {
	if config.MaxPDULength == 0 {
		config.MaxPDULength = defaultMaxPDULength
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	transferSyntaxes := config.PreferredTransferSyntaxes
	if len(transferSyntaxes) == 0 {
		transferSyntaxes = []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian}
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	if err := conn.SetDeadline(time.Now().Add(config.Timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	assoc := &Association{
		conn:             conn,
		callingAETitle:   config.CallingAETitle,
		calledAETitle:    config.CalledAETitle,
		maxPDULength:     config.MaxPDULength,
		presentationCtxs: make(map[byte]*PresentationContext),
		logger:           logger,
	}

	rq := &pdu.AssociateRQ{
		CalledAETitle:          config.CalledAETitle,
		CallingAETitle:         config.CallingAETitle,
		MaxPDULength:           config.MaxPDULength,
		ImplementationClassUID: dicom.ImplementationClassUID,
		ImplementationVersion:  dicom.ImplementationVersionName,
	}
	for _, p := range proposed {
		rq.PresentationContexts = append(rq.PresentationContexts, pdu.ProposedContext{
			ID:               p.id,
			AbstractSyntax:   p.abstractSyntax,
			TransferSyntaxes: transferSyntaxes,
		})
		assoc.presentationCtxs[p.id] = &PresentationContext{ID: p.id, AbstractSyntax: p.abstractSyntax}
	}

	if err := pdu.WritePDU(conn, types.TypeAssociateRQ, rq.Encode()); err != nil {
		return nil, fmt.Errorf("failed to send A-ASSOCIATE-RQ: %w", err)
	}
	if err := assoc.receiveAssociateAC(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("calling_ae", config.CallingAETitle).
		Str("called_ae", config.CalledAETitle).
		Msg("DICOM association established")

	return assoc, nil
}

func (a *Association) receiveAssociateAC() error {
	resp, err := pdu.ReadPDU(a.conn)
	if err != nil {
		return dicomerrors.NewNetworkError("receive association response", err)
	}

	switch resp.Type {
	case types.TypeAssociateAC:
	case types.TypeAssociateRJ:
		return pdu.ParseAssociateRJ(resp.Data)
	case types.TypeAbort:
		return pdu.ParseAbort(resp.Data)
	default:
		return dicomerrors.NewPDUError(resp.Type, "unexpected PDU (expected A-ASSOCIATE-AC)")
	}

	ac, err := pdu.ParseAssociateAC(resp.Data)
	if err != nil {
		return err
	}
	a.peerMaxPDU = ac.MaxPDULength

	for _, result := range ac.PresentationContexts {
		pc, ok := a.presentationCtxs[result.ID]
		if !ok {
			continue
		}
		pc.Accepted = result.Result == types.PresentationAccepted
		pc.TransferSyntax = result.TransferSyntax
		a.logger.Debug().
			Uint8("context_id", pc.ID).
			Str("abstract_syntax", pc.AbstractSyntax).
			Bool("accepted", pc.Accepted).
			Str("transfer_syntax", pc.TransferSyntax).
			Msg("Presentation context negotiation")
	}
	return nil
}

// Close releases the association and closes the connection.
func (a *Association) Close() error {
	if err := pdu.WriteReleaseRQ(a.conn); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to send release request")
		return a.conn.Close()
	}

	if resp, err := pdu.ReadPDU(a.conn); err == nil && resp.Type != types.TypeReleaseRP {
		a.logger.Warn().Str("type", fmt.Sprintf("0x%02x", resp.Type)).Msg("Unexpected PDU instead of A-RELEASE-RP")
	}
	return a.conn.Close()
}

// GetPresentationContextID finds an accepted presentation context for the given abstract syntax
func (a *Association) GetPresentationContextID(abstractSyntax string) (byte, error) {
	for _, pc := range a.presentationCtxs {
		if pc.AbstractSyntax == abstractSyntax && pc.Accepted {
			return pc.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", dicomerrors.ErrNoPresentationCtx, abstractSyntax)
}

func (a *Association) transferSyntax(pcID byte) string {
	if pc, ok := a.presentationCtxs[pcID]; ok {
		return pc.TransferSyntax
	}
	return ""
}

// sendLimit is the PDU size the peer is willing to receive.
func (a *Association) sendLimit() uint32 {
	if a.peerMaxPDU == 0 {
		return defaultMaxPDULength
	}
	return a.peerMaxPDU
}
