package types

// DICOM Application Context UID
// The Application Context defines the DICOM application-level message exchange rules.
const ApplicationContextUID = "1.2.840.10008.3.1.1.1"

// SOP classes offered by the worklist SCP (PS3.4 Annex A and K).
const (
	VerificationSOPClass                 = "1.2.840.10008.1.1"
	ModalityWorklistInformationModelFind = "1.2.840.10008.5.1.4.31"
)

// Related SOP classes a modality may propose next to the worklist. They are
// known so that rejections can be logged by name.
const (
	ModalityPerformedProcedureStepSOPClass     = "1.2.840.10008.3.1.2.3.3"
	StudyRootQueryRetrieveInformationModelFind = "1.2.840.10008.5.1.4.1.2.2.1"
	UltrasoundImageStorage                     = "1.2.840.10008.5.1.4.1.1.6.1"
)

// SOPClassInfo provides human-readable information about a SOP Class UID
type SOPClassInfo struct {
	UID       string
	Name      string
	Category  string
	Supported bool
}

// GetSOPClassInfo returns information about a SOP Class UID
func GetSOPClassInfo(uid string) *SOPClassInfo {
	info, ok := sopClassRegistry[uid]
	if !ok {
		return &SOPClassInfo{
			UID:      uid,
			Name:     "Unknown",
			Category: "Unknown",
		}
	}
	return &info
}

// IsSupportedAbstractSyntax reports whether an association may carry the SOP class.
func IsSupportedAbstractSyntax(uid string) bool {
	return GetSOPClassInfo(uid).Supported
}

// SupportedAbstractSyntaxes lists the SOP classes accepted during negotiation.
func SupportedAbstractSyntaxes() []string {
	return []string{VerificationSOPClass, ModalityWorklistInformationModelFind}
}

var sopClassRegistry = map[string]SOPClassInfo{
	VerificationSOPClass: {
		UID:       VerificationSOPClass,
		Name:      "Verification SOP Class",
		Category:  "Verification",
		Supported: true,
	},
	ModalityWorklistInformationModelFind: {
		UID:       ModalityWorklistInformationModelFind,
		Name:      "Modality Worklist - FIND",
		Category:  "Worklist",
		Supported: true,
	},
	ModalityPerformedProcedureStepSOPClass: {
		UID:      ModalityPerformedProcedureStepSOPClass,
		Name:     "Modality Performed Procedure Step",
		Category: "MPPS",
	},
	StudyRootQueryRetrieveInformationModelFind: {
		UID:      StudyRootQueryRetrieveInformationModelFind,
		Name:     "Study Root Query/Retrieve - FIND",
		Category: "Query/Retrieve",
	},
	UltrasoundImageStorage: {
		UID:      UltrasoundImageStorage,
		Name:     "Ultrasound Image Storage",
		Category: "Storage",
	},
}
