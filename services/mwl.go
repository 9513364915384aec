package services

import (
	"fmt"
	"strings"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// CharacterSetUTF8 is returned in every match so Vietnamese names survive.
const CharacterSetUTF8 = "ISO_IR 192"

// SPSStatusScheduled is the Scheduled Procedure Step Status of every entry.
const SPSStatusScheduled = "SCHEDULED"

// worklistQuery is a parsed MWL C-FIND identifier.
type worklistQuery struct {
	filter         worklist.Filter
	stationAETitle string
}

// parseWorklistQuery extracts the supported matching keys. Keys may sit in
// the first Scheduled Procedure Step item, where PS3.4 puts them, or at the
// top level, where some modalities send them.
func parseWorklistQuery(ds *dicom.Dataset) (*worklistQuery, error) {
	q := &worklistQuery{
		filter: worklist.Filter{
			PatientName:     universalToEmpty(ds.GetString(dicom.TagPatientName)),
			PatientID:       universalToEmpty(ds.GetString(dicom.TagPatientID)),
			AccessionNumber: universalToEmpty(ds.GetString(dicom.TagAccessionNumber)),
			Modality:        universalToEmpty(ds.GetString(dicom.TagModality)),
		},
	}
	date := universalToEmpty(ds.GetString(dicom.TagScheduledProcedureStepStartDate))

	if items := ds.GetSequence(dicom.TagScheduledProcedureStepSequence); len(items) > 0 {
		sps := items[0]
		if m := universalToEmpty(sps.GetString(dicom.TagModality)); m != "" {
			q.filter.Modality = m
		}
		if d := universalToEmpty(sps.GetString(dicom.TagScheduledProcedureStepStartDate)); d != "" {
			date = d
		}
		q.stationAETitle = universalToEmpty(sps.GetString(dicom.TagScheduledStationAETitle))
	}

	from, to, err := worklist.ParseDateRange(date)
	if err != nil {
		return nil, fmt.Errorf("scheduled procedure step start date: %w", err)
	}
	q.filter.DateFrom, q.filter.DateTo = from, to
	return q, nil
}

func universalToEmpty(value string) string {
	value = strings.TrimSpace(value)
	if strings.Trim(value, "*") == "" {
		return ""
	}
	return value
}

// buildWorklistItem renders one entry as an MWL C-FIND match.
func buildWorklistItem(e *worklist.Entry, stationAETitle string) *dicom.Dataset {
	sps := dicom.NewDataset()
	sps.AddElement(dicom.TagModality, dicom.VR_CS, e.Modality)
	sps.AddElement(dicom.TagScheduledStationAETitle, dicom.VR_AE, stationAETitle)
	sps.AddElement(dicom.TagScheduledProcedureStepStartDate, dicom.VR_DA, e.ScheduledDate)
	sps.AddElement(dicom.TagScheduledProcedureStepStartTime, dicom.VR_TM, e.ScheduledTime)
	sps.AddElement(dicom.TagScheduledPerformingPhysicianName, dicom.VR_PN, "")
	sps.AddElement(dicom.TagScheduledProcedureStepDescription, dicom.VR_LO, e.StudyDescription)
	sps.AddElement(dicom.TagScheduledProcedureStepID, dicom.VR_SH, e.AccessionNumber)
	sps.AddElement(dicom.TagScheduledProcedureStepStatus, dicom.VR_CS, SPSStatusScheduled)

	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagSpecificCharacterSet, dicom.VR_CS, CharacterSetUTF8)
	ds.AddElement(dicom.TagAccessionNumber, dicom.VR_SH, e.AccessionNumber)
	ds.AddElement(dicom.TagReferringPhysicianName, dicom.VR_PN, deref(e.ReferringPhysician))
	ds.AddElement(dicom.TagStudyDescription, dicom.VR_LO, e.StudyDescription)
	ds.AddElement(dicom.TagPatientName, dicom.VR_PN, e.PatientName)
	ds.AddElement(dicom.TagPatientID, dicom.VR_LO, e.PatientID)
	ds.AddElement(dicom.TagPatientBirthDate, dicom.VR_DA, deref(e.PatientBirthDate))
	ds.AddElement(dicom.TagPatientSex, dicom.VR_CS, deref(e.PatientSex))
	ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, e.StudyInstanceUID)
	ds.AddElement(dicom.TagRequestedProcedureDescription, dicom.VR_LO, e.StudyDescription)
	ds.AddElement(dicom.TagRequestedProcedureID, dicom.VR_SH, e.AccessionNumber)
	ds.AddSequence(dicom.TagScheduledProcedureStepSequence, sps)
	return ds
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
