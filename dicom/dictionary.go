package dicom

// Item and delimitation tags used inside sequences.
var (
	TagItem                 = Tag{0xFFFE, 0xE000}
	TagItemDelimitation     = Tag{0xFFFE, 0xE00D}
	TagSequenceDelimitation = Tag{0xFFFE, 0xE0DD}
)

// Attributes of the Modality Worklist information model (PS3.4 K.6).
var (
	TagSpecificCharacterSet              = Tag{0x0008, 0x0005}
	TagSOPClassUID                       = Tag{0x0008, 0x0016}
	TagSOPInstanceUID                    = Tag{0x0008, 0x0018}
	TagAccessionNumber                   = Tag{0x0008, 0x0050}
	TagModality                          = Tag{0x0008, 0x0060}
	TagInstitutionName                   = Tag{0x0008, 0x0080}
	TagReferringPhysicianName            = Tag{0x0008, 0x0090}
	TagStudyDescription                  = Tag{0x0008, 0x1030}
	TagReferencedStudySequence           = Tag{0x0008, 0x1110}
	TagReferencedPatientSequence         = Tag{0x0008, 0x1120}
	TagPatientName                       = Tag{0x0010, 0x0010}
	TagPatientID                         = Tag{0x0010, 0x0020}
	TagPatientBirthDate                  = Tag{0x0010, 0x0030}
	TagPatientSex                        = Tag{0x0010, 0x0040}
	TagOtherPatientIDs                   = Tag{0x0010, 0x1000}
	TagPatientWeight                     = Tag{0x0010, 0x1030}
	TagStudyInstanceUID                  = Tag{0x0020, 0x000D}
	TagRequestingPhysician               = Tag{0x0032, 0x1032}
	TagRequestedProcedureDescription     = Tag{0x0032, 0x1060}
	TagRequestedProcedureCodeSequence    = Tag{0x0032, 0x1064}
	TagAdmissionID                       = Tag{0x0038, 0x0010}
	TagScheduledStationAETitle           = Tag{0x0040, 0x0001}
	TagScheduledProcedureStepStartDate   = Tag{0x0040, 0x0002}
	TagScheduledProcedureStepStartTime   = Tag{0x0040, 0x0003}
	TagScheduledPerformingPhysicianName  = Tag{0x0040, 0x0006}
	TagScheduledProcedureStepDescription = Tag{0x0040, 0x0007}
	TagScheduledProtocolCodeSequence     = Tag{0x0040, 0x0008}
	TagScheduledProcedureStepID          = Tag{0x0040, 0x0009}
	TagScheduledStationName              = Tag{0x0040, 0x0010}
	TagScheduledProcedureStepLocation    = Tag{0x0040, 0x0011}
	TagScheduledProcedureStepStatus      = Tag{0x0040, 0x0020}
	TagScheduledProcedureStepSequence    = Tag{0x0040, 0x0100}
	TagRequestedProcedureID              = Tag{0x0040, 0x1001}
	TagRequestedProcedurePriority        = Tag{0x0040, 0x1003}
)

// File Meta Information (PS3.10 7.1).
var (
	TagFileMetaGroupLength        = Tag{0x0002, 0x0000}
	TagFileMetaVersion            = Tag{0x0002, 0x0001}
	TagMediaStorageSOPClassUID    = Tag{0x0002, 0x0002}
	TagMediaStorageSOPInstanceUID = Tag{0x0002, 0x0003}
	TagTransferSyntaxUID          = Tag{0x0002, 0x0010}
	TagImplementationClassUID     = Tag{0x0002, 0x0012}
	TagImplementationVersionName  = Tag{0x0002, 0x0013}
)

var vrDictionary = map[Tag]string{
	TagSpecificCharacterSet:              VR_CS,
	TagSOPClassUID:                       VR_UI,
	TagSOPInstanceUID:                    VR_UI,
	TagAccessionNumber:                   VR_SH,
	TagModality:                          VR_CS,
	TagInstitutionName:                   VR_LO,
	TagReferringPhysicianName:            VR_PN,
	TagStudyDescription:                  VR_LO,
	TagReferencedStudySequence:           VR_SQ,
	TagReferencedPatientSequence:         VR_SQ,
	TagPatientName:                       VR_PN,
	TagPatientID:                         VR_LO,
	TagPatientBirthDate:                  VR_DA,
	TagPatientSex:                        VR_CS,
	TagOtherPatientIDs:                   VR_LO,
	TagPatientWeight:                     VR_DS,
	TagStudyInstanceUID:                  VR_UI,
	TagRequestingPhysician:               VR_PN,
	TagRequestedProcedureDescription:     VR_LO,
	TagRequestedProcedureCodeSequence:    VR_SQ,
	TagAdmissionID:                       VR_LO,
	TagScheduledStationAETitle:           VR_AE,
	TagScheduledProcedureStepStartDate:   VR_DA,
	TagScheduledProcedureStepStartTime:   VR_TM,
	TagScheduledPerformingPhysicianName:  VR_PN,
	TagScheduledProcedureStepDescription: VR_LO,
	TagScheduledProtocolCodeSequence:     VR_SQ,
	TagScheduledProcedureStepID:          VR_SH,
	TagScheduledStationName:              VR_SH,
	TagScheduledProcedureStepLocation:    VR_SH,
	TagScheduledProcedureStepStatus:      VR_CS,
	TagScheduledProcedureStepSequence:    VR_SQ,
	TagRequestedProcedureID:              VR_SH,
	TagRequestedProcedurePriority:        VR_SH,
	TagFileMetaVersion:                   VR_OB,
	TagMediaStorageSOPClassUID:           VR_UI,
	TagMediaStorageSOPInstanceUID:        VR_UI,
	TagTransferSyntaxUID:                 VR_UI,
	TagImplementationClassUID:            VR_UI,
	TagImplementationVersionName:         VR_SH,
}

// LookupVR returns the VR used to decode an implicit VR element. Group
// length elements are UL; anything not in the dictionary is UN.
func LookupVR(tag Tag) string {
	if vr, ok := vrDictionary[tag]; ok {
		return vr
	}
	if tag.Element == 0x0000 {
		return VR_UL
	}
	return VR_UN
}
