package dicom

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestTag_String(t *testing.T) {
	tests := []struct {
		name     string
		tag      Tag
		expected string
	}{
		{"Patient Name", TagPatientName, "(0010,0010)"},
		{"Study Instance UID", TagStudyInstanceUID, "(0020,000d)"},
		{"Scheduled Procedure Step Sequence", TagScheduledProcedureStepSequence, "(0040,0100)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.tag.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestDataset_GetString(t *testing.T) {
	ds := NewDataset()

	tests := []struct {
		name     string
		tag      Tag
		value    interface{}
		expected string
	}{
		{"String value", TagPatientName, "NGUYEN^THI TEST", "NGUYEN^THI TEST"},
		{"String with spaces", TagPatientID, "  BN0042  ", "BN0042"},
		{"Multi-valued", TagOtherPatientIDs, []string{"A", "B"}, `A\B`},
		{"Non-string value", TagRequestedProcedurePriority, 123, ""},
		{"Non-existing tag", Tag{0xFFFF, 0xFFFF}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != nil {
				ds.AddElement(tt.tag, VR_LO, tt.value)
			}
			result := ds.GetString(tt.tag)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestDataset_GetStrings(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagModality, VR_CS, `US\OT`)

	result := ds.GetStrings(TagModality)
	if len(result) != 2 || result[0] != "US" || result[1] != "OT" {
		t.Errorf("Expected [US OT], got %v", result)
	}
	if ds.GetStrings(TagAccessionNumber) != nil {
		t.Error("Expected nil for missing tag")
	}
}

func TestDataset_Has(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagPatientName, VR_PN, "")

	if !ds.Has(TagPatientName) {
		t.Error("Expected zero-length element to be present")
	}
	if ds.Has(TagPatientID) {
		t.Error("Expected Patient ID to be absent")
	}
}

func explicitShort(tag Tag, vr, value string) []byte {
	buf := appendTag(nil, tag)
	buf = append(buf, vr...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

func implicitElement(tag Tag, value []byte) []byte {
	buf := appendTag(nil, tag)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}

func TestParseDataset(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		checks  func(t *testing.T, ds *Dataset)
	}{
		{
			name: "Empty dataset",
			data: []byte{},
			checks: func(t *testing.T, ds *Dataset) {
				if len(ds.Elements) != 0 {
					t.Errorf("Expected 0 elements, got %d", len(ds.Elements))
				}
			},
		},
		{
			name: "Short and padded elements",
			data: append(explicitShort(TagAccessionNumber, VR_SH, "ACC000042 "), explicitShort(TagPatientName, VR_PN, "DOE^JANE")...),
			checks: func(t *testing.T, ds *Dataset) {
				if got := ds.GetString(TagAccessionNumber); got != "ACC000042" {
					t.Errorf("Expected ACC000042, got %q", got)
				}
				if got := ds.GetString(TagPatientName); got != "DOE^JANE" {
					t.Errorf("Expected DOE^JANE, got %q", got)
				}
			},
		},
		{
			name: "Zero length key",
			data: explicitShort(TagPatientID, VR_LO, ""),
			checks: func(t *testing.T, ds *Dataset) {
				if !ds.Has(TagPatientID) {
					t.Error("Expected universal key to be kept")
				}
			},
		},
		{
			name: "Value longer than data",
			data: func() []byte {
				buf := explicitShort(TagPatientName, VR_PN, "DOE^")
				binary.LittleEndian.PutUint16(buf[6:8], 20)
				return buf
			}(),
			wantErr: true,
		},
		{
			name:    "Truncated header",
			data:    []byte{0x10, 0x00, 0x10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ParseDataset(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDataset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checks != nil {
				tt.checks(t, ds)
			}
		})
	}
}

func TestParseImplicitUndefinedLengthSequence(t *testing.T) {
	var data []byte
	data = append(data, implicitElement(TagAccessionNumber, []byte("ACC1"))...)

	// (0040,0100) with undefined length, one undefined length item
	data = appendTag(data, TagScheduledProcedureStepSequence)
	data = binary.LittleEndian.AppendUint32(data, undefinedLength)
	data = appendTag(data, TagItem)
	data = binary.LittleEndian.AppendUint32(data, undefinedLength)
	data = append(data, implicitElement(TagModality, []byte("US"))...)
	data = append(data, implicitElement(TagScheduledProcedureStepStartDate, []byte("20251102"))...)
	data = appendTag(data, TagItemDelimitation)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = appendTag(data, TagSequenceDelimitation)
	data = binary.LittleEndian.AppendUint32(data, 0)

	data = append(data, implicitElement(TagPatientName, []byte("DOE^"))...)

	ds, err := ParseDatasetWithTransferSyntax(data, TransferSyntaxImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("ParseDatasetWithTransferSyntax() error = %v", err)
	}

	items := ds.GetSequence(TagScheduledProcedureStepSequence)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if got := items[0].GetString(TagModality); got != "US" {
		t.Errorf("Expected modality US, got %q", got)
	}
	if got := items[0].GetString(TagScheduledProcedureStepStartDate); got != "20251102" {
		t.Errorf("Expected date 20251102, got %q", got)
	}
	if got := ds.GetString(TagPatientName); got != "DOE^" {
		t.Errorf("Expected element after sequence to be parsed, got %q", got)
	}
	if el, _ := ds.GetElement(TagAccessionNumber); el.VR != VR_SH {
		t.Errorf("Expected dictionary VR SH, got %s", el.VR)
	}
}

func TestParseUndefinedLengthSequenceWithoutDelimiter(t *testing.T) {
	data := appendTag(nil, TagScheduledProcedureStepSequence)
	data = append(data, VR_SQ...)
	data = append(data, 0x00, 0x00)
	data = binary.LittleEndian.AppendUint32(data, undefinedLength)
	data = appendTag(data, TagItem)
	data = binary.LittleEndian.AppendUint32(data, 0)

	if _, err := ParseDataset(data); err == nil {
		t.Error("Expected error for sequence without delimitation item")
	}
}

func TestSequenceEncoding(t *testing.T) {
	step := NewDataset()
	step.AddElement(TagModality, VR_CS, "US")
	step.AddElement(TagScheduledProcedureStepStartTime, VR_TM, "143000")

	ds := NewDataset()
	ds.AddElement(TagPatientName, VR_PN, "DOE^JANE")
	ds.AddSequence(TagScheduledProcedureStepSequence, step)

	for _, ts := range []string{TransferSyntaxExplicitVRLittleEndian, TransferSyntaxImplicitVRLittleEndian} {
		t.Run(ts, func(t *testing.T) {
			encoded, err := EncodeDatasetWithTransferSyntax(ds, ts)
			if err != nil {
				t.Fatalf("EncodeDatasetWithTransferSyntax() error = %v", err)
			}
			decoded, err := ParseDatasetWithTransferSyntax(encoded, ts)
			if err != nil {
				t.Fatalf("ParseDatasetWithTransferSyntax() error = %v", err)
			}
			items := decoded.GetSequence(TagScheduledProcedureStepSequence)
			if len(items) != 1 {
				t.Fatalf("Expected 1 item, got %d", len(items))
			}
			if got := items[0].GetString(TagScheduledProcedureStepStartTime); got != "143000" {
				t.Errorf("Expected 143000, got %q", got)
			}
		})
	}
}

func TestEncodeDataset_OrderAndPadding(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagStudyInstanceUID, VR_UI, "1.2.3")
	ds.AddElement(TagPatientName, VR_PN, "ABC")

	encoded := ds.EncodeDataset()

	// Patient Name (0010,0010) sorts before Study Instance UID (0020,000D)
	if !bytes.Equal(encoded[0:4], []byte{0x10, 0x00, 0x10, 0x00}) {
		t.Fatalf("Expected first tag (0010,0010), got % x", encoded[0:4])
	}
	if length := binary.LittleEndian.Uint16(encoded[6:8]); length != 4 {
		t.Errorf("Expected padded PN length 4, got %d", length)
	}
	if encoded[11] != 0x20 {
		t.Errorf("Expected PN padded with space, got 0x%02x", encoded[11])
	}

	uid := encoded[12:]
	if string(uid[4:6]) != VR_UI {
		t.Fatalf("Expected UI VR, got %q", uid[4:6])
	}
	if length := binary.LittleEndian.Uint16(uid[6:8]); length != 6 {
		t.Errorf("Expected padded UI length 6, got %d", length)
	}
	if uid[13] != 0x00 {
		t.Errorf("Expected UI padded with NULL, got 0x%02x", uid[13])
	}
}

func TestEncodeDatasetWithTransferSyntax_Implicit(t *testing.T) {
	ds := NewDataset()
	ds.AddElement(TagModality, VR_CS, "US")

	encoded, err := EncodeDatasetWithTransferSyntax(ds, TransferSyntaxImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []byte{0x08, 0x00, 0x60, 0x00, 0x02, 0x00, 0x00, 0x00, 'U', 'S'}
	if !bytes.Equal(encoded, expected) {
		t.Errorf("Expected % x, got % x", expected, encoded)
	}
}

func TestUnsupportedTransferSyntax(t *testing.T) {
	if _, err := EncodeDatasetWithTransferSyntax(NewDataset(), "1.2.840.10008.1.2.2"); err == nil {
		t.Error("Expected error encoding big endian")
	}
	if _, err := ParseDatasetWithTransferSyntax(nil, "1.2.840.10008.1.2.4.50"); err == nil {
		t.Error("Expected error parsing JPEG baseline")
	}
}

func TestLookupVR(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{TagScheduledProcedureStepSequence, VR_SQ},
		{TagPatientBirthDate, VR_DA},
		{Tag{0x0010, 0x0000}, VR_UL},
		{Tag{0x0009, 0x1001}, VR_UN},
	}

	for _, tt := range tests {
		if got := LookupVR(tt.tag); got != tt.want {
			t.Errorf("LookupVR(%s) = %s, want %s", tt.tag, got, tt.want)
		}
	}
}
