package types

// Uncompressed transfer syntaxes (PS3.5 section 10). Worklist identifiers are
// small text datasets, so only the little endian pair is negotiated.
const (
	// ImplicitVRLittleEndian is the DICOM default and must always be accepted.
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	// ExplicitVRBigEndian is retired and never accepted.
	ExplicitVRBigEndian = "1.2.840.10008.1.2.2"
	// DeflatedExplicitVRLittleEndian is recognised but never accepted.
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
)

// TransferSyntaxInfo provides metadata about a transfer syntax
type TransferSyntaxInfo struct {
	UID       string
	Name      string
	Explicit  bool
	IsRetired bool
	Supported bool
}

// GetTransferSyntaxInfo returns information about a transfer syntax UID
func GetTransferSyntaxInfo(uid string) *TransferSyntaxInfo {
	info, ok := transferSyntaxRegistry[uid]
	if !ok {
		return &TransferSyntaxInfo{UID: uid, Name: "Unknown"}
	}
	return &info
}

// IsSupportedTransferSyntax reports whether the dataset codec can handle the syntax.
func IsSupportedTransferSyntax(uid string) bool {
	return GetTransferSyntaxInfo(uid).Supported
}

// PreferredTransferSyntaxes returns the accepted syntaxes in negotiation order.
func PreferredTransferSyntaxes() []string {
	return []string{ExplicitVRLittleEndian, ImplicitVRLittleEndian}
}

// SelectTransferSyntax picks the first proposed syntax we support, preferring
// explicit VR. It returns "" when none is acceptable.
func SelectTransferSyntax(proposed []string) string {
	for _, preferred := range PreferredTransferSyntaxes() {
		for _, ts := range proposed {
			if ts == preferred {
				return ts
			}
		}
	}
	return ""
}

var transferSyntaxRegistry = map[string]TransferSyntaxInfo{
	ImplicitVRLittleEndian: {
		UID:       ImplicitVRLittleEndian,
		Name:      "Implicit VR Little Endian",
		Supported: true,
	},
	ExplicitVRLittleEndian: {
		UID:       ExplicitVRLittleEndian,
		Name:      "Explicit VR Little Endian",
		Explicit:  true,
		Supported: true,
	},
	ExplicitVRBigEndian: {
		UID:       ExplicitVRBigEndian,
		Name:      "Explicit VR Big Endian",
		Explicit:  true,
		IsRetired: true,
	},
	DeflatedExplicitVRLittleEndian: {
		UID:      DeflatedExplicitVRLittleEndian,
		Name:     "Deflated Explicit VR Little Endian",
		Explicit: true,
	},
}
