package client

import (
	"fmt"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	"github.com/caio-sobreiro/mwlbridge/dimse"
	dicomerrors "github.com/caio-sobreiro/mwlbridge/errors"
	"github.com/caio-sobreiro/mwlbridge/types"
)

// CFindRequest encapsulates the information required to perform a worklist query.
type CFindRequest struct {
	MessageID uint16
	Dataset   *dicom.Dataset
}

// CFindResponse represents a single C-FIND response from the SCP.
type CFindResponse struct {
	Status       uint16
	MessageID    uint16
	ErrorComment string
	Dataset      *dicom.Dataset
}

// WorklistQuery builds an MWL identifier asking for the attributes the SCP
// returns. Empty modality or date leave those keys universal.
func WorklistQuery(modality, date string) *dicom.Dataset {
	sps := dicom.NewDataset()
	sps.AddElement(dicom.TagModality, dicom.VR_CS, modality)
	sps.AddElement(dicom.TagScheduledStationAETitle, dicom.VR_AE, "")
	sps.AddElement(dicom.TagScheduledProcedureStepStartDate, dicom.VR_DA, date)
	sps.AddElement(dicom.TagScheduledProcedureStepStartTime, dicom.VR_TM, "")
	sps.AddElement(dicom.TagScheduledProcedureStepDescription, dicom.VR_LO, "")

	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagAccessionNumber, dicom.VR_SH, "")
	ds.AddElement(dicom.TagPatientName, dicom.VR_PN, "")
	ds.AddElement(dicom.TagPatientID, dicom.VR_LO, "")
	ds.AddElement(dicom.TagPatientBirthDate, dicom.VR_DA, "")
	ds.AddElement(dicom.TagPatientSex, dicom.VR_CS, "")
	ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, "")
	ds.AddSequence(dicom.TagScheduledProcedureStepSequence, sps)
	return ds
}

// SendCFind performs a Modality Worklist C-FIND and returns all responses
// in order, the final (non-pending) one last. A final status other than
// success is returned as a *errors.DIMSEError wrapped with ErrQueryFailed,
// alongside the responses received.
func (a *Association) SendCFind(req *CFindRequest) ([]*CFindResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("c-find request cannot be nil")
	}
	if req.Dataset == nil {
		return nil, fmt.Errorf("c-find request requires a dataset")
	}

	messageID := req.MessageID
	if messageID == 0 {
		messageID = 1
	}

	presContextID, err := a.GetPresentationContextID(types.ModalityWorklistInformationModelFind)
	if err != nil {
		return nil, err
	}
	transferSyntax := a.transferSyntax(presContextID)

	identifier, err := dicom.EncodeDatasetWithTransferSyntax(req.Dataset, transferSyntax)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identifier: %w", err)
	}

	command := &types.Message{
		CommandField:        types.CFindRQ,
		MessageID:           messageID,
		AffectedSOPClassUID: types.ModalityWorklistInformationModelFind,
	}
	if err := dimse.SendMessage(a.conn, presContextID, a.sendLimit(), command, identifier); err != nil {
		return nil, fmt.Errorf("failed to send C-FIND request: %w", err)
	}

	var responses []*CFindResponse
	for {
		msg, data, err := dimse.ReceiveMessage(a.conn)
		if err != nil {
			return responses, err
		}
		if msg.CommandField != types.CFindRSP {
			return responses, fmt.Errorf("unexpected command: 0x%04x (expected C-FIND-RSP)", msg.CommandField)
		}

		rsp := &CFindResponse{
			Status:       msg.Status,
			MessageID:    msg.MessageIDBeingRespondedTo,
			ErrorComment: msg.ErrorComment,
		}
		if len(data) > 0 {
			rsp.Dataset, err = dicom.ParseDatasetWithTransferSyntax(data, transferSyntax)
			if err != nil {
				a.logger.Warn().Err(err).
					Uint16("message_id", msg.MessageIDBeingRespondedTo).
					Msg("Failed to parse C-FIND response dataset")
			}
		}
		responses = append(responses, rsp)

		if types.IsPending(msg.Status) {
			continue
		}
		if msg.Status != types.StatusSuccess {
			return responses, fmt.Errorf("%w: %w", dicomerrors.ErrQueryFailed,
				dicomerrors.NewDIMSEError("C-FIND", msg.Status, msg.ErrorComment))
		}
		return responses, nil
	}
}

// Matches returns the datasets of the pending responses. A query that did
// not end in success yields nothing: matches received before a failure or
// cancel are incomplete and must be discarded.
func Matches(responses []*CFindResponse) []*dicom.Dataset {
	if len(responses) == 0 || responses[len(responses)-1].Status != types.StatusSuccess {
		return nil
	}

	var out []*dicom.Dataset
	for _, r := range responses {
		if types.IsPending(r.Status) && r.Dataset != nil {
			out = append(out, r.Dataset)
		}
	}
	return out
}
