package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caio-sobreiro/mwlbridge/dicom"
	"github.com/caio-sobreiro/mwlbridge/types"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// WorklistFileExtension is the suffix file-based worklist SCPs look for.
const WorklistFileExtension = ".wl"

// ExportWorklistFiles writes every entry as a Part 10 worklist file named
// after its accession number and returns the written paths. Existing files
// with the same name are replaced.
func ExportWorklistFiles(dir string, entries []worklist.Entry, stationAETitle string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.AccessionNumber == "" || strings.ContainsAny(e.AccessionNumber, `/\`) {
			return paths, fmt.Errorf("entry %d: accession number %q is not a valid file name", e.ID, e.AccessionNumber)
		}

		path := filepath.Join(dir, e.AccessionNumber+WorklistFileExtension)
		if err := writeWorklistFile(path, e, stationAETitle); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeWorklistFile(path string, e *worklist.Entry, stationAETitle string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	err = dicom.WritePart10(f, buildWorklistItem(e, stationAETitle), dicom.FileMeta{
		MediaStorageSOPClassUID:    types.ModalityWorklistInformationModelFind,
		MediaStorageSOPInstanceUID: dicom.UIDFromName("worklist/" + e.AccessionNumber),
		TransferSyntaxUID:          dicom.TransferSyntaxExplicitVRLittleEndian,
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
