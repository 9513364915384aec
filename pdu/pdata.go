package pdu

import (
	"encoding/binary"
	"fmt"
	"io"

	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Message control header bits (PS3.8 E.2)
const (
	ControlCommand      = 0x01
	ControlLastFragment = 0x02
)

// PDV is a single Presentation Data Value item of a P-DATA-TF PDU.
type PDV struct {
	ContextID byte
	Control   byte
	Data      []byte
}

// IsCommand reports whether the fragment belongs to the command set.
func (p PDV) IsCommand() bool { return p.Control&ControlCommand != 0 }

// IsLast reports whether this is the final fragment of its command or data set.
func (p PDV) IsLast() bool { return p.Control&ControlLastFragment != 0 }

// ParsePDataTF splits a P-DATA-TF payload into its PDVs. A single PDU may
// carry several PDVs.
func ParsePDataTF(data []byte) ([]PDV, error) {
	var pdvs []PDV
	offset := 0
	for offset < len(data) {
		if offset+6 > len(data) {
			return nil, dicomerrors.NewPDUError(types.TypePDataTF, "malformed PDV header")
		}
		pdvLength := binary.BigEndian.Uint32(data[offset : offset+4])
		end := offset + 4 + int(pdvLength)
		if pdvLength < 2 || end > len(data) {
			return nil, dicomerrors.NewPDUError(types.TypePDataTF, fmt.Sprintf("PDV length %d exceeds PDU payload", pdvLength))
		}
		pdvs = append(pdvs, PDV{
			ContextID: data[offset+4],
			Control:   data[offset+5],
			Data:      data[offset+6 : end],
		})
		offset = end
	}
	if len(pdvs) == 0 {
		return nil, dicomerrors.NewPDUError(types.TypePDataTF, "P-DATA-TF without PDV")
	}
	return pdvs, nil
}

// WritePDataTF sends data as one or more P-DATA-TF PDUs, each no larger than
// maxPDULength. A maxPDULength of zero means the peer set no limit.
func WritePDataTF(w io.Writer, presContextID byte, maxPDULength uint32, data []byte, isCommand bool) error {
	// PDU length counts the PDV item: length (4) + context ID (1) + control header (1)
	maxFragment := len(data)
	if maxPDULength > 0 {
		maxFragment = int(maxPDULength) - 6
		if maxFragment <= 0 {
			return fmt.Errorf("max PDU length %d too small", maxPDULength)
		}
	}

	offset := 0
	for {
		chunkSize := len(data) - offset
		last := true
		if chunkSize > maxFragment {
			chunkSize = maxFragment
			last = false
		}

		control := byte(0)
		if isCommand {
			control |= ControlCommand
		}
		if last {
			control |= ControlLastFragment
		}

		pdv := make([]byte, 0, 6+chunkSize)
		pdv = binary.BigEndian.AppendUint32(pdv, uint32(chunkSize+2))
		pdv = append(pdv, presContextID, control)
		pdv = append(pdv, data[offset:offset+chunkSize]...)

		if err := WritePDU(w, types.TypePDataTF, pdv); err != nil {
			return fmt.Errorf("failed to write P-DATA-TF: %w", err)
		}

		offset += chunkSize
		if last {
			return nil
		}
	}
}
