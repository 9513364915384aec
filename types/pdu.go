package types

// PDU type constants
const (
	TypeAssociateRQ = 0x01
	TypeAssociateAC = 0x02
	TypeAssociateRJ = 0x03
	TypePDataTF     = 0x04
	TypeReleaseRQ   = 0x05
	TypeReleaseRP   = 0x06
	TypeAbort       = 0x07
)

// Presentation context negotiation results (PS3.8 9.3.3.2).
const (
	PresentationAccepted                 = 0x00
	PresentationUserRejection            = 0x01
	PresentationAbstractSyntaxRejected   = 0x03
	PresentationTransferSyntaxesRejected = 0x04
)

// DefaultMaxPDULength is advertised in A-ASSOCIATE-AC and used when the peer sends none.
const DefaultMaxPDULength = 16384

// PDU represents a Protocol Data Unit
type PDU struct {
	Type   byte
	Length uint32
	Data   []byte
}

// AssociationContext holds association state
type AssociationContext struct {
	CalledAETitle    string
	CallingAETitle   string
	MaxPDULength     uint32
	PresentationCtxs map[byte]*PresentationContext
}

// PresentationContext represents a negotiated presentation context
type PresentationContext struct {
	ID             byte
	Result         byte
	AbstractSyntax string
	TransferSyntax string
}
