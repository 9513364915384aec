package pdu

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Item types of the variable part of A-ASSOCIATE PDUs (PS3.8 9.3.2).
const (
	itemApplicationContext    = 0x10
	itemPresentationContextRQ = 0x20
	itemPresentationContextAC = 0x21
	itemAbstractSyntax        = 0x30
	itemTransferSyntax        = 0x40
	itemUserInformation       = 0x50
	itemMaxLength             = 0x51
	itemImplementationClass   = 0x52
	itemImplementationVersion = 0x55
)

// maxAcceptedPDULength bounds a single PDU read; anything larger is treated as garbage.
const maxAcceptedPDULength = 64 << 20

// ReadPDU reads a complete PDU from r
func ReadPDU(r io.Reader) (*types.PDU, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	pduType := header[0]
	pduLength := binary.BigEndian.Uint32(header[2:6])
	if pduLength > maxAcceptedPDULength {
		return nil, dicomerrors.NewPDUError(pduType, fmt.Sprintf("length %d exceeds limit", pduLength))
	}

	data := make([]byte, pduLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read PDU data: %w", err)
	}

	return &types.PDU{
		Type:   pduType,
		Length: pduLength,
		Data:   data,
	}, nil
}

// WritePDU writes the header and payload in a single call
func WritePDU(w io.Writer, pduType byte, data []byte) error {
	buf := make([]byte, 6, 6+len(data))
	buf[0] = pduType
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(data)))
	buf = append(buf, data...)
	_, err := w.Write(buf)
	return err
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

// forEachItem walks the type/length/value items of an association PDU.
func forEachItem(data []byte, fn func(itemType byte, value []byte) error) error {
	offset := 0
	for offset+4 <= len(data) {
		itemType := data[offset]
		itemLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueEnd := offset + 4 + int(itemLength)
		if valueEnd > len(data) {
			return fmt.Errorf("item 0x%02x exceeds PDU length", itemType)
		}
		if err := fn(itemType, data[offset+4:valueEnd]); err != nil {
			return err
		}
		offset = valueEnd
	}
	return nil
}

func normalizeUID(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func trimAETitle(raw []byte) string {
	value := string(raw)
	if idx := strings.IndexByte(value, 0); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

func padAETitle(title string) []byte {
	if len(title) > 16 {
		title = title[:16]
	}
	return []byte(fmt.Sprintf("%-16s", title))
}

// ProposedContext is a presentation context offered in A-ASSOCIATE-RQ.
type ProposedContext struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// AssociateRQ is the decoded form of an A-ASSOCIATE-RQ PDU.
type AssociateRQ struct {
	CalledAETitle          string
	CallingAETitle         string
	ApplicationContext     string
	PresentationContexts   []ProposedContext
	MaxPDULength           uint32
	ImplementationClassUID string
	ImplementationVersion  string
}

// Encode returns the PDU payload (without the 6 byte header).
func (rq *AssociateRQ) Encode() []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, 0x00, 0x01, 0x00, 0x00) // Protocol version + reserved
	buf = append(buf, padAETitle(rq.CalledAETitle)...)
	buf = append(buf, padAETitle(rq.CallingAETitle)...)
	buf = append(buf, make([]byte, 32)...)

	appContext := rq.ApplicationContext
	if appContext == "" {
		appContext = types.ApplicationContextUID
	}
	buf = appendItem(buf, itemApplicationContext, []byte(appContext))

	for _, pc := range rq.PresentationContexts {
		value := []byte{pc.ID, 0x00, 0x00, 0x00}
		value = appendItem(value, itemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			value = appendItem(value, itemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, itemPresentationContextRQ, value)
	}

	return appendItem(buf, itemUserInformation, encodeUserInformation(rq.MaxPDULength, rq.ImplementationClassUID, rq.ImplementationVersion))
}

func encodeUserInformation(maxPDULength uint32, classUID, version string) []byte {
	var info []byte
	info = appendItem(info, itemMaxLength, binary.BigEndian.AppendUint32(nil, maxPDULength))
	if classUID != "" {
		info = appendItem(info, itemImplementationClass, []byte(classUID))
	}
	if version != "" {
		info = appendItem(info, itemImplementationVersion, []byte(version))
	}
	return info
}

// ParseAssociateRQ decodes an A-ASSOCIATE-RQ payload
func ParseAssociateRQ(data []byte) (*AssociateRQ, error) {
	if len(data) < 68 {
		return nil, dicomerrors.NewPDUError(types.TypeAssociateRQ, "association request too short")
	}

	rq := &AssociateRQ{
		CalledAETitle:  trimAETitle(data[4:20]),
		CallingAETitle: trimAETitle(data[20:36]),
	}

	err := forEachItem(data[68:], func(itemType byte, value []byte) error {
		switch itemType {
		case itemApplicationContext:
			rq.ApplicationContext = normalizeUID(value)
		case itemPresentationContextRQ:
			pc, err := parseProposedContext(value)
			if err != nil {
				return err
			}
			rq.PresentationContexts = append(rq.PresentationContexts, *pc)
		case itemUserInformation:
			return parseUserInformation(value, &rq.MaxPDULength, &rq.ImplementationClassUID, &rq.ImplementationVersion)
		}
		return nil
	})
	if err != nil {
		return nil, dicomerrors.NewPDUError(types.TypeAssociateRQ, err.Error())
	}

	return rq, nil
}

func parseProposedContext(data []byte) (*ProposedContext, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("presentation context too short: %d", len(data))
	}

	pc := &ProposedContext{ID: data[0]}
	err := forEachItem(data[4:], func(itemType byte, value []byte) error {
		switch itemType {
		case itemAbstractSyntax:
			pc.AbstractSyntax = normalizeUID(value)
		case itemTransferSyntax:
			pc.TransferSyntaxes = append(pc.TransferSyntaxes, normalizeUID(value))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("presentation context %d: %w", pc.ID, err)
	}
	if pc.AbstractSyntax == "" {
		return nil, fmt.Errorf("presentation context %d missing abstract syntax", pc.ID)
	}
	return pc, nil
}

func parseUserInformation(data []byte, maxPDULength *uint32, classUID, version *string) error {
	return forEachItem(data, func(itemType byte, value []byte) error {
		switch itemType {
		case itemMaxLength:
			if len(value) == 4 {
				*maxPDULength = binary.BigEndian.Uint32(value)
			}
		case itemImplementationClass:
			*classUID = normalizeUID(value)
		case itemImplementationVersion:
			*version = strings.TrimSpace(string(value))
		}
		return nil
	})
}

// AssociateAC is the decoded form of an A-ASSOCIATE-AC PDU.
type AssociateAC struct {
	CalledAETitle        string
	CallingAETitle       string
	PresentationContexts []types.PresentationContext
	MaxPDULength         uint32
}

// EncodeAssociateAC builds the A-ASSOCIATE-AC payload for a negotiated association.
// Rejected contexts are left out; some peers (DCMTK, Orthanc) refuse an AC
// that lists them.
func EncodeAssociateAC(assoc *types.AssociationContext, contexts []*types.PresentationContext, maxPDULength uint32) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, 0x00, 0x01, 0x00, 0x00)
	buf = append(buf, padAETitle(assoc.CalledAETitle)...)
	buf = append(buf, padAETitle(assoc.CallingAETitle)...)
	buf = append(buf, make([]byte, 32)...)
	buf = appendItem(buf, itemApplicationContext, []byte(types.ApplicationContextUID))

	for _, pc := range contexts {
		if pc.Result != types.PresentationAccepted {
			continue
		}
		value := []byte{pc.ID, 0x00, pc.Result, 0x00}
		value = appendItem(value, itemTransferSyntax, []byte(pc.TransferSyntax))
		buf = appendItem(buf, itemPresentationContextAC, value)
	}

	return appendItem(buf, itemUserInformation, encodeUserInformation(maxPDULength, dicom.ImplementationClassUID, dicom.ImplementationVersionName))
}

// ParseAssociateAC decodes an A-ASSOCIATE-AC payload
func ParseAssociateAC(data []byte) (*AssociateAC, error) {
	if len(data) < 68 {
		return nil, dicomerrors.NewPDUError(types.TypeAssociateAC, "association accept too short")
	}

	ac := &AssociateAC{
		CalledAETitle:  trimAETitle(data[4:20]),
		CallingAETitle: trimAETitle(data[20:36]),
	}

	var classUID, version string
	err := forEachItem(data[68:], func(itemType byte, value []byte) error {
		switch itemType {
		case itemPresentationContextAC:
			if len(value) < 4 {
				return fmt.Errorf("presentation context result too short")
			}
			pc := types.PresentationContext{ID: value[0], Result: value[2]}
			if err := forEachItem(value[4:], func(subType byte, subValue []byte) error {
				if subType == itemTransferSyntax {
					pc.TransferSyntax = normalizeUID(subValue)
				}
				return nil
			}); err != nil {
				return err
			}
			ac.PresentationContexts = append(ac.PresentationContexts, pc)
		case itemUserInformation:
			return parseUserInformation(value, &ac.MaxPDULength, &classUID, &version)
		}
		return nil
	})
	if err != nil {
		return nil, dicomerrors.NewPDUError(types.TypeAssociateAC, err.Error())
	}

	return ac, nil
}

// EncodeAssociateRJ builds the 4 byte A-ASSOCIATE-RJ payload for err.
func EncodeAssociateRJ(err *dicomerrors.AssociationError) []byte {
	return []byte{0x00, byte(err.Result), byte(err.Source), byte(err.Reason)}
}

// ParseAssociateRJ converts an A-ASSOCIATE-RJ payload into an association error.
func ParseAssociateRJ(data []byte) *dicomerrors.AssociationError {
	if len(data) < 4 {
		return dicomerrors.NewAssociationError(dicomerrors.RejectSourceUnknown, dicomerrors.RejectReasonUnknown, "malformed A-ASSOCIATE-RJ")
	}
	return &dicomerrors.AssociationError{
		Result: dicomerrors.AssociationRejectResult(data[1]),
		Source: dicomerrors.AssociationRejectSource(data[2]),
		Reason: dicomerrors.AssociationRejectReason(data[3]),
		Msg:    "rejected by peer",
	}
}

// ParseAbort converts an A-ABORT payload into an abort error.
func ParseAbort(data []byte) *dicomerrors.AbortError {
	var source, reason byte
	if len(data) >= 4 {
		source = data[2]
		reason = data[3]
	}
	return dicomerrors.NewAbortError(source, reason)
}

// WriteReleaseRQ sends A-RELEASE-RQ
func WriteReleaseRQ(w io.Writer) error {
	return WritePDU(w, types.TypeReleaseRQ, make([]byte, 4))
}

// WriteReleaseRP sends A-RELEASE-RP
func WriteReleaseRP(w io.Writer) error {
	return WritePDU(w, types.TypeReleaseRP, make([]byte, 4))
}

// WriteAbort sends A-ABORT with the given source and reason
func WriteAbort(w io.Writer, source, reason byte) error {
	return WritePDU(w, types.TypeAbort, []byte{0x00, 0x00, source, reason})
}
