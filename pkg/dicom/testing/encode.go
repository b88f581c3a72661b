// Package testing builds DICOM fixtures for tests of the extractor and the
// storage engine.
package testing

import (
	"bytes"
	"fmt"
	"testing"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/marmos91/shadowfs/pkg/dicom"
)

const (
	// ctImageStorage is the SOP class written into fixture meta headers.
	ctImageStorage = "1.2.840.10008.5.1.4.1.1.2"

	// explicitVRLittleEndian is the transfer syntax of fixtures.
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// Encode writes a minimal DICOM file carrying the non-empty fields of md.
func Encode(md dicom.Metadata) ([]byte, error) {
	var elems []*godicom.Element
	add := func(t tag.Tag, value any) error {
		elem, err := godicom.NewElement(t, value)
		if err != nil {
			return fmt.Errorf("element %v: %w", t, err)
		}
		elems = append(elems, elem)
		return nil
	}
	addString := func(t tag.Tag, value string) error {
		if value == "" {
			return nil
		}
		return add(t, []string{value})
	}

	sopInstance := md.InstanceID
	if sopInstance == "" {
		sopInstance = "1.2.826.0.1.3680043.2.1125.1"
	}

	steps := []func() error{
		func() error { return add(tag.FileMetaInformationVersion, []byte{0x00, 0x01}) },
		func() error { return add(tag.MediaStorageSOPClassUID, []string{ctImageStorage}) },
		func() error { return add(tag.MediaStorageSOPInstanceUID, []string{sopInstance}) },
		func() error { return add(tag.TransferSyntaxUID, []string{explicitVRLittleEndian}) },
		func() error { return addString(tag.SOPInstanceUID, md.InstanceID) },
		func() error { return addString(tag.StudyDate, md.StudyDate) },
		func() error { return addString(tag.StudyTime, md.StudyTime) },
		func() error { return addString(tag.SeriesDescription, md.SeriesDescription) },
		func() error { return addString(tag.PatientName, md.PatientName) },
		func() error { return addString(tag.PatientID, md.PatientID) },
		func() error { return addString(tag.SeriesNumber, md.SeriesNumber) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := godicom.Write(&buf, godicom.Dataset{Elements: elems}, godicom.SkipVRVerification()); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// MustEncode is Encode for tests.
func MustEncode(t *testing.T, md dicom.Metadata) []byte {
	t.Helper()
	data, err := Encode(md)
	if err != nil {
		t.Fatalf("Failed to encode DICOM fixture: %v", err)
	}
	return data
}

// ScenarioMetadata is the reference study used across tests: it maps to
// "12345.ab/210318_101500/S2_CT/1.2.3" in the shadow tree.
func ScenarioMetadata() dicom.Metadata {
	return dicom.Metadata{
		PatientID:         "12345.ab",
		PatientName:       "DOE^JOHN",
		StudyDate:         "20210318",
		StudyTime:         "101500",
		SeriesNumber:      "2",
		SeriesDescription: "CT",
		InstanceID:        "1.2.3",
	}
}
