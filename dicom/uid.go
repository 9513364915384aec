package dicom

import (
	"math/big"

	"github.com/google/uuid"
)

// uidNamespace scopes name-based UIDs generated by this implementation.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mwlbridge"))

// ImplementationClassUID identifies this implementation in association and file meta headers.
var ImplementationClassUID = UIDFromName("implementation")

// ImplementationVersionName is sent alongside ImplementationClassUID.
const ImplementationVersionName = "MWLBRIDGE_1"

// NewUID returns a random UID under the 2.25 arc (PS3.5 B.2).
func NewUID() string {
	return uuidToUID(uuid.New())
}

// UIDFromName returns a UID that is stable for a given name, so that entries
// rebuilt from the same source record keep their Study Instance UID.
func UIDFromName(name string) string {
	return uuidToUID(uuid.NewSHA1(uidNamespace, []byte(name)))
}

func uuidToUID(id uuid.UUID) string {
	return "2.25." + new(big.Int).SetBytes(id[:]).String()
}
