package dimse

import (
	"fmt"
	"io"

	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/pdu"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// Connection is the byte stream a requestor exchanges DIMSE messages over
type Connection interface {
	io.ReadWriter
}

// SendMessage encodes msg and writes it, followed by the optional dataset,
// as P-DATA-TF PDUs no larger than maxPDULength.
func SendMessage(conn Connection, presContextID byte, maxPDULength uint32, msg *types.Message, dataset []byte) error {
	if len(dataset) > 0 {
		msg.CommandDataSetType = types.DataSetPresent
	} else {
		msg.CommandDataSetType = types.NoDataSet
	}

	if err := pdu.WritePDataTF(conn, presContextID, maxPDULength, EncodeCommand(msg), true); err != nil {
		return err
	}
	if len(dataset) > 0 {
		return pdu.WritePDataTF(conn, presContextID, maxPDULength, dataset, false)
	}
	return nil
}

// ReceiveMessage reads PDUs until one complete DIMSE message (command and,
// when announced, its dataset) has arrived. A-ABORT and A-RELEASE-RQ from the
// peer end the exchange with an error.
func ReceiveMessage(conn Connection) (*types.Message, []byte, error) {
	var (
		commandData []byte
		datasetData []byte
		msg         *types.Message
	)

	for {
		p, err := pdu.ReadPDU(conn)
		if err != nil {
			return nil, nil, dicomerrors.NewNetworkError("receive DIMSE message", err)
		}

		switch p.Type {
		case types.TypePDataTF:
		case types.TypeAbort:
			return nil, nil, pdu.ParseAbort(p.Data)
		default:
			return nil, nil, dicomerrors.NewPDUError(p.Type, "unexpected PDU while waiting for DIMSE message")
		}

		pdvs, err := pdu.ParsePDataTF(p.Data)
		if err != nil {
			return nil, nil, err
		}

		for _, pdv := range pdvs {
			if pdv.IsCommand() {
				commandData = append(commandData, pdv.Data...)
				if !pdv.IsLast() {
					continue
				}
				msg, err = DecodeCommand(commandData)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to decode command: %w", err)
				}
				if !msg.HasDataset() {
					return msg, nil, nil
				}
				continue
			}

			datasetData = append(datasetData, pdv.Data...)
			if pdv.IsLast() && msg != nil {
				return msg, datasetData, nil
			}
		}
	}
}
