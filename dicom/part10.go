package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const part10PreambleLength = 128

// FileMeta carries the group 0x0002 attributes of a Part 10 file.
type FileMeta struct {
	MediaStorageSOPClassUID    string
	MediaStorageSOPInstanceUID string
	TransferSyntaxUID          string
}

// WritePart10 writes ds as a DICOM Part 10 file: a zero preamble, the DICM
// prefix, Explicit VR Little Endian File Meta Information and the dataset
// encoded with meta.TransferSyntaxUID.
func WritePart10(w io.Writer, ds *Dataset, meta FileMeta) error {
	if meta.TransferSyntaxUID == "" {
		meta.TransferSyntaxUID = TransferSyntaxExplicitVRLittleEndian
	}

	body, err := EncodeDatasetWithTransferSyntax(ds, meta.TransferSyntaxUID)
	if err != nil {
		return err
	}

	group := NewDataset()
	group.AddElement(TagFileMetaVersion, VR_OB, []byte{0x00, 0x01})
	group.AddElement(TagMediaStorageSOPClassUID, VR_UI, meta.MediaStorageSOPClassUID)
	group.AddElement(TagMediaStorageSOPInstanceUID, VR_UI, meta.MediaStorageSOPInstanceUID)
	group.AddElement(TagTransferSyntaxUID, VR_UI, meta.TransferSyntaxUID)
	group.AddElement(TagImplementationClassUID, VR_UI, ImplementationClassUID)
	group.AddElement(TagImplementationVersionName, VR_SH, ImplementationVersionName)
	groupBytes := group.EncodeDataset()

	length := NewDataset()
	length.AddElement(TagFileMetaGroupLength, VR_UL, uint32(len(groupBytes)))

	var buf bytes.Buffer
	buf.Write(make([]byte, part10PreambleLength))
	buf.WriteString("DICM")
	buf.Write(length.EncodeDataset())
	buf.Write(groupBytes)
	buf.Write(body)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write part 10 file: %w", err)
	}
	return nil
}

// ReadPart10 parses a complete Part 10 file into its meta information and dataset.
func ReadPart10(data []byte) (*FileMeta, *Dataset, error) {
	body, transferSyntaxUID, meta, err := splitPart10(data)
	if err != nil {
		return nil, nil, err
	}

	ds, err := ParseDatasetWithTransferSyntax(body, transferSyntaxUID)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dataset: %w", err)
	}
	return meta, ds, nil
}

// StripPart10Header removes the DICOM Part 10 preamble and File Meta Information
// to extract just the dataset.
func StripPart10Header(data []byte) ([]byte, error) {
	body, _, _, err := splitPart10(data)
	return body, err
}

func splitPart10(data []byte) ([]byte, string, *FileMeta, error) {
	if !HasPart10Header(data) {
		return nil, "", nil, fmt.Errorf("not a valid DICOM Part 10 file (missing DICM prefix at offset 128)")
	}

	offset := part10PreambleLength + 4
	meta := &FileMeta{}

	// Group 0x0002 is always Explicit VR Little Endian
	for offset+8 <= len(data) {
		tag := readTag(data, offset)
		if tag.Group != 0x0002 {
			break
		}

		elem := NewDataset()
		next, err := readElements(data, offset, elementEnd(data, offset), true, elem)
		if err != nil {
			return nil, "", nil, fmt.Errorf("file meta information: %w", err)
		}
		offset = next

		value := strings.TrimRight(elem.GetString(tag), "\x00 ")
		switch tag {
		case TagMediaStorageSOPClassUID:
			meta.MediaStorageSOPClassUID = value
		case TagMediaStorageSOPInstanceUID:
			meta.MediaStorageSOPInstanceUID = value
		case TagTransferSyntaxUID:
			meta.TransferSyntaxUID = value
		}
	}

	if offset > len(data) {
		return nil, "", nil, fmt.Errorf("failed to find dataset after File Meta Information")
	}

	transferSyntaxUID := meta.TransferSyntaxUID
	if transferSyntaxUID == "" {
		transferSyntaxUID = TransferSyntaxExplicitVRLittleEndian
	}
	return data[offset:], transferSyntaxUID, meta, nil
}

// elementEnd returns the end offset of the explicit VR element starting at
// offset, so that readElements decodes exactly one element.
func elementEnd(data []byte, offset int) int {
	vr := string(data[offset+4 : offset+6])
	end := offset + 8
	if isLongVR(vr) {
		if offset+12 > len(data) {
			return len(data)
		}
		end = offset + 12 + int(binary.LittleEndian.Uint32(data[offset+8:offset+12]))
	} else {
		end += int(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
	}
	if end > len(data) {
		return len(data)
	}
	return end
}

// HasPart10Header checks if the data starts with a DICOM Part 10 header.
func HasPart10Header(data []byte) bool {
	if len(data) < part10PreambleLength+4 {
		return false
	}
	return string(data[part10PreambleLength:part10PreambleLength+4]) == "DICM"
}
