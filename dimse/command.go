package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Command set element numbers (group 0000)
const (
	elemGroupLength               = 0x0000
	elemAffectedSOPClassUID       = 0x0002
	elemCommandField              = 0x0100
	elemMessageID                 = 0x0110
	elemMessageIDBeingRespondedTo = 0x0120
	elemPriority                  = 0x0700
	elemCommandDataSetType        = 0x0800
	elemStatus                    = 0x0900
	elemErrorComment              = 0x0902
)

// PriorityMedium is the default priority for C-FIND requests.
const PriorityMedium = 0x0000

// EncodeCommand encodes a DIMSE command set using Implicit VR Little Endian,
// as PS3.7 requires for every command regardless of the negotiated syntax.
func EncodeCommand(msg *types.Message) []byte {
	buf := make([]byte, 0, 256)

	// Command Group Length is filled in once the rest is known
	buf = appendImplicitElement(buf, elemGroupLength, make([]byte, 4))
	lengthPos := len(buf) - 4

	if msg.AffectedSOPClassUID != "" {
		buf = appendImplicitElement(buf, elemAffectedSOPClassUID, padValue(msg.AffectedSOPClassUID, 0x00))
	}

	buf = appendImplicitElement(buf, elemCommandField, uint16Value(msg.CommandField))

	if msg.MessageID != 0 {
		buf = appendImplicitElement(buf, elemMessageID, uint16Value(msg.MessageID))
	}
	if msg.MessageIDBeingRespondedTo != 0 {
		buf = appendImplicitElement(buf, elemMessageIDBeingRespondedTo, uint16Value(msg.MessageIDBeingRespondedTo))
	}
	if msg.CommandField == types.CFindRQ {
		buf = appendImplicitElement(buf, elemPriority, uint16Value(msg.Priority))
	}

	buf = appendImplicitElement(buf, elemCommandDataSetType, uint16Value(msg.CommandDataSetType))

	// Status is mandatory in every response, including success (0x0000)
	if msg.CommandField&0x8000 != 0 {
		buf = appendImplicitElement(buf, elemStatus, uint16Value(msg.Status))
	}
	if msg.ErrorComment != "" {
		buf = appendImplicitElement(buf, elemErrorComment, padValue(truncateComment(msg.ErrorComment, maxErrorComment), ' '))
	}

	binary.LittleEndian.PutUint32(buf[lengthPos:], uint32(len(buf)-lengthPos-4))
	return buf
}

// maxErrorComment is the LO value limit for Error Comment (0000,0902).
const maxErrorComment = 64

// truncateComment cuts s to at most limit bytes without splitting a rune.
func truncateComment(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func appendImplicitElement(buf []byte, element uint16, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, 0x0000)
	buf = binary.LittleEndian.AppendUint16(buf, element)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}

func uint16Value(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func padValue(s string, pad byte) []byte {
	value := []byte(s)
	if len(value)%2 == 1 {
		value = append(value, pad)
	}
	return value
}

// DecodeCommand decodes an Implicit VR Little Endian command set. Elements
// outside group 0000 or unknown to this package are skipped.
func DecodeCommand(data []byte) (*types.Message, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: command set too short (%d bytes)", dicomerrors.ErrInvalidMessage, len(data))
	}

	msg := &types.Message{CommandDataSetType: types.NoDataSet}
	sawCommandField := false

	offset := 0
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset:])
		element := binary.LittleEndian.Uint16(data[offset+2:])
		length := binary.LittleEndian.Uint32(data[offset+4:])

		end := offset + 8 + int(length)
		if end > len(data) {
			return nil, fmt.Errorf("%w: element (%04x,%04x) length %d exceeds command set",
				dicomerrors.ErrInvalidMessage, group, element, length)
		}
		value := data[offset+8 : end]
		offset = end

		if group != 0x0000 {
			continue
		}

		switch element {
		case elemAffectedSOPClassUID:
			msg.AffectedSOPClassUID = strings.TrimRight(string(value), "\x00 ")
		case elemCommandField:
			if len(value) >= 2 {
				msg.CommandField = binary.LittleEndian.Uint16(value)
				sawCommandField = true
			}
		case elemMessageID:
			if len(value) >= 2 {
				msg.MessageID = binary.LittleEndian.Uint16(value)
			}
		case elemMessageIDBeingRespondedTo:
			if len(value) >= 2 {
				msg.MessageIDBeingRespondedTo = binary.LittleEndian.Uint16(value)
			}
		case elemPriority:
			if len(value) >= 2 {
				msg.Priority = binary.LittleEndian.Uint16(value)
			}
		case elemCommandDataSetType:
			if len(value) >= 2 {
				msg.CommandDataSetType = binary.LittleEndian.Uint16(value)
			}
		case elemStatus:
			if len(value) >= 2 {
				msg.Status = binary.LittleEndian.Uint16(value)
			}
		case elemErrorComment:
			msg.ErrorComment = strings.TrimRight(string(value), "\x00 ")
		}
	}

	if !sawCommandField {
		return nil, fmt.Errorf("%w: missing command field", dicomerrors.ErrInvalidMessage)
	}
	return msg, nil
}
