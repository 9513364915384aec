// Package worklist holds the canonical worklist entry, its normalization
// rules, query matching and the durable store the DICOM responder reads.
package worklist

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("worklist: entry not found")

// ErrDuplicateAccession is returned when an update would give two entries
// the same accession number.
var ErrDuplicateAccession = errors.New("worklist: accession number already in use")

// Entry is one scheduled procedure offered to modality worklist queries. It
// is a projection of a source appointment and can always be rebuilt from it.
type Entry struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID      int64   `gorm:"not null;index" json:"appointment_id"`
	AccessionNumber    string  `gorm:"size:16;not null;uniqueIndex:idx_worklist_accession" json:"accession_number"`
	PatientName        string  `gorm:"size:255;not null" json:"patient_name"`
	PatientID          string  `gorm:"size:64;not null" json:"patient_id"`
	PatientBirthDate   *string `gorm:"size:8" json:"patient_birth_date"`
	PatientSex         *string `gorm:"size:1" json:"patient_sex"`
	ReferringPhysician *string `gorm:"size:255" json:"referring_physician"`
	StudyDescription   string  `gorm:"size:255" json:"study_description"`
	Modality           string  `gorm:"size:16;not null" json:"modality"`
	ScheduledDate      string  `gorm:"size:8;not null;index" json:"scheduled_date"`
	ScheduledTime      string  `gorm:"size:6" json:"scheduled_time"`
	StudyInstanceUID   string  `gorm:"size:64" json:"study_instance_uid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name independent of gorm's naming strategy.
func (Entry) TableName() string {
	return "worklist_entries"
}

// upsertColumns are overwritten when an upsert hits an existing accession
// number. id and created_at are kept.
var upsertColumns = []string{
	"appointment_id",
	"patient_name",
	"patient_id",
	"patient_birth_date",
	"patient_sex",
	"referring_physician",
	"study_description",
	"modality",
	"scheduled_date",
	"scheduled_time",
	"study_instance_uid",
	"updated_at",
}
