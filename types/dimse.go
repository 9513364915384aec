package types

// DIMSE command fields used by the worklist SCP and its probes.
const (
	CFindRQ   = 0x0020
	CFindRSP  = 0x8020
	CEchoRQ   = 0x0030
	CEchoRSP  = 0x8030
	CCancelRQ = 0x0FFF
)

// CommandDataSetType values.
const (
	DataSetPresent = 0x0000
	NoDataSet      = 0x0101
)

// DIMSE status codes
const (
	StatusSuccess               = 0x0000
	StatusPending               = 0xFF00
	StatusPendingOptionalKeys   = 0xFF01 // some optional keys were not supported
	StatusCancel                = 0xFE00
	StatusFailure               = 0xC000
	StatusUnableToProcess       = 0xC001 // the worklist store could not be read
	StatusIdentifierMismatch    = 0xA900
	StatusSOPClassNotSupported  = 0x0122
	StatusUnrecognizedOperation = 0x0211
)

// Message represents a parsed DIMSE command
type Message struct {
	CommandField              uint16
	MessageID                 uint16
	AffectedSOPClassUID       string
	Priority                  uint16
	CommandDataSetType        uint16
	Status                    uint16
	MessageIDBeingRespondedTo uint16
	ErrorComment              string
	TransferSyntaxUID         string // Negotiated transfer syntax for associated dataset
}

// HasDataset reports whether the command announces a following data set.
func (m *Message) HasDataset() bool {
	return m.CommandDataSetType != NoDataSet
}

// IsPending reports whether the status belongs to the pending class.
func IsPending(status uint16) bool {
	return status == StatusPending || status == StatusPendingOptionalKeys
}

// ResponseCommandFor maps a DIMSE request command to its corresponding response command.
func ResponseCommandFor(request uint16) uint16 {
	switch request {
	case CFindRQ:
		return CFindRSP
	case CEchoRQ:
		return CEchoRSP
	default:
		return request | 0x8000
	}
}
