package dicom

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// createValidPart10File creates a minimal valid DICOM Part 10 file for testing
func createValidPart10File() []byte {
	var data []byte

	// 128-byte preamble (all zeros)
	data = append(data, make([]byte, 128)...)
	data = append(data, []byte("DICM")...)

	// Transfer Syntax UID (0002,0010)
	data = append(data, 0x02, 0x00, 0x10, 0x00)
	data = append(data, 'U', 'I')
	tsUID := "1.2.840.10008.1.2.1\x00"
	tsLength := make([]byte, 2)
	binary.LittleEndian.PutUint16(tsLength, uint16(len(tsUID)))
	data = append(data, tsLength...)
	data = append(data, []byte(tsUID)...)

	// Patient Name (0010,0010)
	data = append(data, 0x10, 0x00, 0x10, 0x00)
	data = append(data, 'P', 'N')
	patientName := "TEST^PATIENT"
	nameLength := make([]byte, 2)
	binary.LittleEndian.PutUint16(nameLength, uint16(len(patientName)))
	data = append(data, nameLength...)
	data = append(data, []byte(patientName)...)

	return data
}

func TestStripPart10Header_ValidFile(t *testing.T) {
	dataset, err := StripPart10Header(createValidPart10File())
	if err != nil {
		t.Fatalf("StripPart10Header() error = %v", err)
	}

	expectedTag := []byte{0x10, 0x00, 0x10, 0x00}
	if len(dataset) < 4 || !bytes.Equal(dataset[0:4], expectedTag) {
		t.Errorf("Expected dataset to start with tag 0010,0010, got % x", dataset)
	}
}

func TestStripPart10Header_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", make([]byte, 64)},
		{"missing prefix", make([]byte, 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := StripPart10Header(tt.data); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestWriteReadPart10(t *testing.T) {
	step := NewDataset()
	step.AddElement(TagModality, VR_CS, "US")

	ds := NewDataset()
	ds.AddElement(TagSpecificCharacterSet, VR_CS, "ISO_IR 192")
	ds.AddElement(TagPatientName, VR_PN, "Nguyễn Thị Test")
	ds.AddElement(TagAccessionNumber, VR_SH, "ACC000042")
	ds.AddSequence(TagScheduledProcedureStepSequence, step)

	for _, ts := range []string{TransferSyntaxExplicitVRLittleEndian, TransferSyntaxImplicitVRLittleEndian} {
		t.Run(ts, func(t *testing.T) {
			var buf bytes.Buffer
			err := WritePart10(&buf, ds, FileMeta{
				MediaStorageSOPClassUID:    "1.2.840.10008.5.1.4.31",
				MediaStorageSOPInstanceUID: "2.25.42",
				TransferSyntaxUID:          ts,
			})
			if err != nil {
				t.Fatalf("WritePart10() error = %v", err)
			}

			if !HasPart10Header(buf.Bytes()) {
				t.Fatal("Expected DICM prefix")
			}

			meta, decoded, err := ReadPart10(buf.Bytes())
			if err != nil {
				t.Fatalf("ReadPart10() error = %v", err)
			}
			if meta.TransferSyntaxUID != ts {
				t.Errorf("Expected transfer syntax %s, got %s", ts, meta.TransferSyntaxUID)
			}
			if meta.MediaStorageSOPInstanceUID != "2.25.42" {
				t.Errorf("Expected instance UID 2.25.42, got %s", meta.MediaStorageSOPInstanceUID)
			}
			if got := decoded.GetString(TagPatientName); got != "Nguyễn Thị Test" {
				t.Errorf("Expected UTF-8 patient name, got %q", got)
			}
			if items := decoded.GetSequence(TagScheduledProcedureStepSequence); len(items) != 1 {
				t.Errorf("Expected 1 step item, got %d", len(items))
			}
		})
	}
}

func TestHasPart10Header(t *testing.T) {
	if HasPart10Header([]byte("DICM")) {
		t.Error("Expected false for data shorter than preamble")
	}
	if !HasPart10Header(createValidPart10File()) {
		t.Error("Expected true for valid file")
	}
}
