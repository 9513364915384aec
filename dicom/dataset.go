package dicom

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/caio-sobreiro/mwlbridge/types"
)

// VR (Value Representation) constants
const (
	VR_AE = "AE" // Application Entity
	VR_AS = "AS" // Age String
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DS = "DS" // Decimal String
	VR_DT = "DT" // Date Time
	VR_IS = "IS" // Integer String
	VR_LO = "LO" // Long String
	VR_LT = "LT" // Long Text
	VR_OB = "OB" // Other Byte
	VR_OW = "OW" // Other Word
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SQ = "SQ" // Sequence of Items
	VR_ST = "ST" // Short Text
	VR_TM = "TM" // Time
	VR_UC = "UC" // Unlimited Characters
	VR_UI = "UI" // Unique Identifier
	VR_UL = "UL" // Unsigned Long
	VR_UN = "UN" // Unknown
	VR_UR = "UR" // Universal Resource
	VR_US = "US" // Unsigned Short
	VR_UT = "UT" // Unlimited Text
)

// Common transfer syntax UIDs
const (
	TransferSyntaxImplicitVRLittleEndian = types.ImplicitVRLittleEndian
	TransferSyntaxExplicitVRLittleEndian = types.ExplicitVRLittleEndian
)

const undefinedLength = 0xFFFFFFFF

// Tag represents a DICOM tag (group, element)
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

func (t Tag) less(o Tag) bool {
	if t.Group != o.Group {
		return t.Group < o.Group
	}
	return t.Element < o.Element
}

// Element represents a DICOM data element. Value holds a string, []string,
// uint16, uint32, []byte or, for SQ elements, []*Dataset.
type Element struct {
	Tag   Tag
	VR    string
	Value interface{}
}

// Dataset represents a collection of DICOM elements
type Dataset struct {
	Elements map[Tag]*Element
}

// NewDataset creates a new empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		Elements: make(map[Tag]*Element),
	}
}

// AddElement adds an element to the dataset, replacing any element with the same tag
func (d *Dataset) AddElement(tag Tag, vr string, value interface{}) {
	d.Elements[tag] = &Element{
		Tag:   tag,
		VR:    vr,
		Value: value,
	}
}

// AddSequence adds an SQ element holding the given items.
func (d *Dataset) AddSequence(tag Tag, items ...*Dataset) {
	d.AddElement(tag, VR_SQ, items)
}

// GetElement returns an element by tag
func (d *Dataset) GetElement(tag Tag) (*Element, bool) {
	element, exists := d.Elements[tag]
	return element, exists
}

// Has reports whether the tag is present, even with an empty value.
func (d *Dataset) Has(tag Tag) bool {
	_, ok := d.Elements[tag]
	return ok
}

// GetString returns a string value for a tag
func (d *Dataset) GetString(tag Tag) string {
	if element, exists := d.Elements[tag]; exists {
		switch v := element.Value.(type) {
		case string:
			return strings.TrimSpace(v)
		case []string:
			return strings.TrimSpace(strings.Join(v, "\\"))
		}
	}
	return ""
}

// GetStrings returns a slice of string values for a tag
func (d *Dataset) GetStrings(tag Tag) []string {
	if element, exists := d.Elements[tag]; exists {
		switch v := element.Value.(type) {
		case string:
			// Split by backslash for multiple values
			parts := strings.Split(v, "\\")
			result := make([]string, len(parts))
			for i, part := range parts {
				result[i] = strings.TrimSpace(part)
			}
			return result
		case []string:
			return v
		}
	}
	return nil
}

// GetSequence returns the items of an SQ element, or nil when absent.
func (d *Dataset) GetSequence(tag Tag) []*Dataset {
	if element, exists := d.Elements[tag]; exists {
		if items, ok := element.Value.([]*Dataset); ok {
			return items
		}
	}
	return nil
}

// Tags returns the dataset's tags in ascending order.
func (d *Dataset) Tags() []Tag {
	tags := make([]Tag, 0, len(d.Elements))
	for tag := range d.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].less(tags[j]) })
	return tags
}

// ParseDataset parses a DICOM dataset from raw bytes (Explicit VR Little Endian)
func ParseDataset(data []byte) (*Dataset, error) {
	return parse(data, true)
}

// ParseDatasetWithTransferSyntax parses a dataset using the provided transfer syntax.
func ParseDatasetWithTransferSyntax(data []byte, transferSyntaxUID string) (*Dataset, error) {
	switch transferSyntaxUID {
	case "", TransferSyntaxExplicitVRLittleEndian:
		return parse(data, true)
	case TransferSyntaxImplicitVRLittleEndian:
		return parse(data, false)
	default:
		return nil, fmt.Errorf("unsupported transfer syntax %s", transferSyntaxUID)
	}
}

func parse(data []byte, explicit bool) (*Dataset, error) {
	dataset := NewDataset()
	if _, err := readElements(data, 0, len(data), explicit, dataset); err != nil {
		return nil, err
	}
	return dataset, nil
}

func isLongVR(vr string) bool {
	switch vr {
	case VR_OB, VR_OW, VR_SQ, VR_UC, VR_UR, VR_UT, VR_UN, "OD", "OF", "OL", "OV", "SV", "UV":
		return true
	}
	return false
}

func readTag(data []byte, offset int) Tag {
	return Tag{
		Group:   binary.LittleEndian.Uint16(data[offset : offset+2]),
		Element: binary.LittleEndian.Uint16(data[offset+2 : offset+4]),
	}
}

// readElements decodes elements in data[offset:limit] into ds. It returns
// early, just past the delimiter, when it meets an Item Delimitation tag.
func readElements(data []byte, offset, limit int, explicit bool, ds *Dataset) (int, error) {
	for offset < limit {
		if offset+8 > limit {
			return offset, fmt.Errorf("truncated element header at offset %d", offset)
		}

		tag := readTag(data, offset)
		if tag == TagItemDelimitation {
			return offset + 8, nil
		}

		var vr string
		var length uint32
		var valueOffset int

		if explicit {
			vr = string(data[offset+4 : offset+6])
			if isLongVR(vr) {
				// Tag (4) + VR (2) + Reserved (2) + Length (4)
				if offset+12 > limit {
					return offset, fmt.Errorf("truncated header for %s", tag)
				}
				length = binary.LittleEndian.Uint32(data[offset+8 : offset+12])
				valueOffset = offset + 12
			} else {
				length = uint32(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
				valueOffset = offset + 8
			}
		} else {
			vr = LookupVR(tag)
			length = binary.LittleEndian.Uint32(data[offset+4 : offset+8])
			valueOffset = offset + 8
		}

		// Undefined length outside SQ only occurs for UN-encoded sequences.
		if vr == VR_SQ || length == undefinedLength {
			items, next, err := readSequence(data, valueOffset, limit, length, explicit)
			if err != nil {
				return offset, fmt.Errorf("sequence %s: %w", tag, err)
			}
			ds.AddElement(tag, VR_SQ, items)
			offset = next
			continue
		}

		end := valueOffset + int(length)
		if end > limit {
			return offset, fmt.Errorf("element %s length %d exceeds available data", tag, length)
		}
		ds.AddElement(tag, vr, parseElementValue(vr, data[valueOffset:end]))
		offset = end
	}

	return offset, nil
}

func readSequence(data []byte, offset, limit int, length uint32, explicit bool) ([]*Dataset, int, error) {
	end := limit
	if length != undefinedLength {
		end = offset + int(length)
		if end > limit {
			return nil, offset, fmt.Errorf("length %d exceeds available data", length)
		}
	}

	var items []*Dataset
	for offset+8 <= end {
		tag := readTag(data, offset)
		itemLength := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8

		switch tag {
		case TagSequenceDelimitation:
			return items, offset, nil
		case TagItem:
			item := NewDataset()
			if itemLength == undefinedLength {
				next, err := readElements(data, offset, end, explicit, item)
				if err != nil {
					return nil, offset, err
				}
				offset = next
			} else {
				itemEnd := offset + int(itemLength)
				if itemEnd > end {
					return nil, offset, fmt.Errorf("item length %d exceeds sequence", itemLength)
				}
				if _, err := readElements(data, offset, itemEnd, explicit, item); err != nil {
					return nil, offset, err
				}
				offset = itemEnd
			}
			items = append(items, item)
		default:
			return nil, offset, fmt.Errorf("unexpected tag %s inside sequence", tag)
		}
	}

	if length == undefinedLength {
		return nil, offset, fmt.Errorf("missing sequence delimitation item")
	}
	return items, end, nil
}

// parseElementValue converts raw value bytes according to the VR
func parseElementValue(vr string, data []byte) interface{} {
	switch vr {
	case VR_US:
		if len(data) >= 2 {
			return binary.LittleEndian.Uint16(data)
		}
	case VR_UL:
		if len(data) >= 4 {
			return binary.LittleEndian.Uint32(data)
		}
	case VR_OB, VR_OW, VR_UN:
		raw := make([]byte, len(data))
		copy(raw, data)
		return raw
	}

	if len(data) == 0 {
		return ""
	}

	// Remove null padding
	value := string(data)
	if idx := strings.IndexByte(value, 0); idx != -1 {
		value = value[:idx]
	}

	return strings.TrimSpace(value)
}

// EncodeDataset encodes a dataset to bytes (Explicit VR Little Endian)
func (d *Dataset) EncodeDataset() []byte {
	return d.encode(true)
}

// EncodeDatasetWithTransferSyntax encodes a dataset using the provided transfer syntax.
func EncodeDatasetWithTransferSyntax(dataset *Dataset, transferSyntaxUID string) ([]byte, error) {
	if dataset == nil {
		return nil, nil
	}

	switch transferSyntaxUID {
	case "", TransferSyntaxExplicitVRLittleEndian:
		return dataset.encode(true), nil
	case TransferSyntaxImplicitVRLittleEndian:
		return dataset.encode(false), nil
	default:
		return nil, fmt.Errorf("unsupported transfer syntax %s", transferSyntaxUID)
	}
}

func (d *Dataset) encode(explicit bool) []byte {
	var result []byte
	for _, tag := range d.Tags() {
		result = appendElement(result, d.Elements[tag], explicit)
	}
	return result
}

func appendTag(buf []byte, tag Tag) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, tag.Group)
	return binary.LittleEndian.AppendUint16(buf, tag.Element)
}

func appendElement(buf []byte, element *Element, explicit bool) []byte {
	vr := element.VR
	if vr == "" {
		vr = LookupVR(element.Tag)
	}

	var valueBytes []byte
	if vr == VR_SQ {
		items, _ := element.Value.([]*Dataset)
		for _, item := range items {
			body := item.encode(explicit)
			valueBytes = appendTag(valueBytes, TagItem)
			valueBytes = binary.LittleEndian.AppendUint32(valueBytes, uint32(len(body)))
			valueBytes = append(valueBytes, body...)
		}
	} else {
		valueBytes = encodeElementValue(element)
		// DICOM requires even lengths
		if len(valueBytes)%2 == 1 {
			valueBytes = append(valueBytes, padByte(vr))
		}
	}

	buf = appendTag(buf, element.Tag)

	if !explicit {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(valueBytes)))
		return append(buf, valueBytes...)
	}

	buf = append(buf, vr...)
	if isLongVR(vr) {
		buf = append(buf, 0x00, 0x00) // Reserved bytes
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(valueBytes)))
	} else {
		if len(valueBytes) > 0xFFFF {
			valueBytes = valueBytes[:0xFFFF-1]
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(valueBytes)))
	}
	return append(buf, valueBytes...)
}

func padByte(vr string) byte {
	switch vr {
	case VR_UI, VR_OB, VR_UN:
		return 0x00
	default:
		return 0x20
	}
}

// encodeElementValue encodes an element value to bytes
func encodeElementValue(element *Element) []byte {
	switch v := element.Value.(type) {
	case nil:
		return nil
	case string:
		return []byte(strings.TrimRight(v, "\x00"))
	case []string:
		return []byte(strings.TrimRight(strings.Join(v, "\\"), "\x00"))
	case []byte:
		return v
	case int:
		return []byte(fmt.Sprintf("%d", v))
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, v)
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, v)
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
