package source

import (
	"context"
	"fmt"

	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// Projection controls how appointments are turned into worklist entries.
type Projection struct {
	Modality        string
	AccessionPrefix string
	AccessionDigits int
}

// DefaultProjection stamps entries as ultrasound with ACC000000-style accession numbers.
var DefaultProjection = Projection{Modality: "US", AccessionPrefix: "ACC", AccessionDigits: 6}

// Extractor produces the worklist entries that should exist for the current
// state of the scheduling store. It only reads.
type Extractor struct {
	reader     Reader
	classifier *Classifier
	projection Projection
}

// NewExtractor creates an extractor over reader.
func NewExtractor(reader Reader, classifier *Classifier, projection Projection) *Extractor {
	return &Extractor{reader: reader, classifier: classifier, projection: projection}
}

// ExtractAll returns one entry per in-scope appointment, in source order.
func (x *Extractor) ExtractAll(ctx context.Context) ([]worklist.Entry, error) {
	appointments, err := x.reader.ListAppointments(ctx, x.classifier.Statuses())
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	entries := make([]worklist.Entry, 0, len(appointments))
	for i := range appointments {
		if !x.classifier.InScope(&appointments[i]) {
			continue
		}
		entries = append(entries, x.Project(&appointments[i]))
	}
	return entries, nil
}

// ExtractOne returns the entry for a single appointment. It fails with
// ErrAppointmentNotFound or ErrOutOfScope when there is nothing to sync.
func (x *Extractor) ExtractOne(ctx context.Context, appointmentID int64) (*worklist.Entry, error) {
	a, err := x.reader.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read appointment %d: %w", appointmentID, err)
	}
	if !x.classifier.InScope(a) {
		return nil, fmt.Errorf("appointment %d (%q, %s): %w", a.ID, a.ProcedureText, a.Status, ErrOutOfScope)
	}
	e := x.Project(a)
	return &e, nil
}

// Project maps one appointment onto a worklist entry. Missing optional source
// fields stay nil; a missing patient external id falls back to one derived
// from the appointment id.
func (x *Extractor) Project(a *Appointment) worklist.Entry {
	accession := worklist.AccessionNumber(a.ID, x.projection.AccessionPrefix, x.projection.AccessionDigits)

	patientID := worklist.FallbackPatientID(a.ID)
	if a.Patient.ExternalID != nil && *a.Patient.ExternalID != "" {
		patientID = *a.Patient.ExternalID
	}

	var physician *string
	if a.DoctorName != nil {
		physician = worklist.NullableString(*a.DoctorName)
	}

	return worklist.Entry{
		AppointmentID:      a.ID,
		AccessionNumber:    accession,
		PatientName:        a.Patient.Name,
		PatientID:          patientID,
		PatientBirthDate:   worklist.FormatBirthDate(a.Patient.BirthDate),
		PatientSex:         worklist.NormalizeSex(a.Patient.Sex),
		ReferringPhysician: physician,
		StudyDescription:   a.ProcedureText,
		Modality:           x.projection.Modality,
		ScheduledDate:      worklist.FormatDate(a.ScheduledAt),
		ScheduledTime:      worklist.FormatTime(a.ScheduledAt),
		StudyInstanceUID:   worklist.StudyInstanceUID(accession),
	}
}
