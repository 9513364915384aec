package services

import (
	"github.com/caio-sobreiro/mwlbridge/types"
)

// ResponseBuilder creates response messages for a request, carrying over
// the message id and SOP class.
type ResponseBuilder struct {
	request *types.Message
}

// NewResponseBuilder creates a new response builder for the given request message.
func NewResponseBuilder(request *types.Message) *ResponseBuilder {
	return &ResponseBuilder{request: request}
}

// CEchoResponse creates a C-ECHO-RSP message.
func (b *ResponseBuilder) CEchoResponse(status uint16) *types.Message {
	return &types.Message{
		CommandField:              types.CEchoRSP,
		MessageIDBeingRespondedTo: b.request.MessageID,
		AffectedSOPClassUID:       types.VerificationSOPClass,
		CommandDataSetType:        types.NoDataSet,
		Status:                    status,
	}
}

// CFindResponse creates a C-FIND-RSP message. Pending responses carry a
// match, every other status ends the query without one.
func (b *ResponseBuilder) CFindResponse(status uint16) *types.Message {
	datasetType := uint16(types.NoDataSet)
	if types.IsPending(status) {
		datasetType = types.DataSetPresent
	}

	sopClass := b.request.AffectedSOPClassUID
	if sopClass == "" {
		sopClass = types.ModalityWorklistInformationModelFind
	}

	return &types.Message{
		CommandField:              types.CFindRSP,
		MessageIDBeingRespondedTo: b.request.MessageID,
		AffectedSOPClassUID:       sopClass,
		CommandDataSetType:        datasetType,
		Status:                    status,
	}
}

// NewCEchoResponse creates a C-ECHO-RSP message from a request.
func NewCEchoResponse(request *types.Message, status uint16) *types.Message {
	return NewResponseBuilder(request).CEchoResponse(status)
}

// NewCFindPendingResponse creates a pending C-FIND-RSP message (with dataset).
func NewCFindPendingResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).CFindResponse(types.StatusPending)
}

// NewCFindSuccessResponse creates a final success C-FIND-RSP message (no dataset).
func NewCFindSuccessResponse(request *types.Message) *types.Message {
	return NewResponseBuilder(request).CFindResponse(types.StatusSuccess)
}

// NewCFindErrorResponse creates a failure C-FIND-RSP with an error comment.
func NewCFindErrorResponse(request *types.Message, status uint16, comment string) *types.Message {
	rsp := NewResponseBuilder(request).CFindResponse(status)
	rsp.ErrorComment = comment
	return rsp
}
