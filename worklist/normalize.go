package worklist

import (
	"fmt"
	"strings"
	"time"

	"github.com/caio-sobreiro/mwlbridge/dicom"
)

// DICOM DA and TM layouts.
const (
	dateLayout = "20060102"
	timeLayout = "150405"
)

// AccessionNumber derives the accession number for an appointment id:
// prefix followed by the id zero-padded to digits. Ids wider than digits
// are kept whole rather than truncated.
func AccessionNumber(appointmentID int64, prefix string, digits int) string {
	return fmt.Sprintf("%s%0*d", prefix, digits, appointmentID)
}

// FormatDate renders t as a DICOM DA value (YYYYMMDD).
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatTime renders t as a DICOM TM value (HHMMSS).
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// FormatBirthDate returns nil for a missing birth date.
func FormatBirthDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := FormatDate(*t)
	return &s
}

// FallbackPatientID is used when the source patient has no external id.
func FallbackPatientID(appointmentID int64) string {
	return fmt.Sprintf("APPT%d", appointmentID)
}

// StudyInstanceUID derives a stable Study Instance UID from the accession
// number so that repeated syncs hand the modality the same study.
func StudyInstanceUID(accessionNumber string) string {
	return dicom.UIDFromName("study/" + accessionNumber)
}

// NormalizeSex maps free-form sex values onto the DICOM CS codes M, F and O.
func NormalizeSex(raw *string) *string {
	if raw == nil {
		return nil
	}
	var code string
	switch strings.ToLower(strings.TrimSpace(*raw)) {
	case "m", "male", "nam":
		code = "M"
	case "f", "female", "nữ", "nu":
		code = "F"
	case "":
		return nil
	default:
		code = "O"
	}
	return &code
}

// NullableString turns blank strings into nil.
func NullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
