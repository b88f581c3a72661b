package shadow

import (
	"path/filepath"
	"testing"

	"github.com/marmos91/shadowfs/pkg/dicom"
	"github.com/stretchr/testify/assert"
)

func scenario() *dicom.Metadata {
	return &dicom.Metadata{
		PatientID:         "12345.ab",
		PatientName:       "DOE^JOHN",
		StudyDate:         "20210318",
		StudyTime:         "101500",
		SeriesNumber:      "2",
		SeriesDescription: "CT",
		InstanceID:        "1.2.3",
	}
}

func TestPath_Scenario(t *testing.T) {
	got, ok := Path("/shadow", scenario(), "")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/shadow/12345.ab/210318_101500/S2_CT/1.2.3"), got)
}

func TestPath_Extension(t *testing.T) {
	got, ok := Path("/shadow", scenario(), ".dcm")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/shadow/12345.ab/210318_101500/S2_CT/1.2.3.dcm"), got)
}

func TestPath_Variants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(md *dicom.Metadata)
		want   string
	}{
		{
			name:   "PatientNameFallback",
			mutate: func(md *dicom.Metadata) { md.PatientID = "" },
			want:   "DOE^JOHN/210318_101500/S2_CT/1.2.3",
		},
		{
			name:   "FractionalTimeTruncated",
			mutate: func(md *dicom.Metadata) { md.StudyTime = "101500.123456" },
			want:   "12345.ab/210318_101500/S2_CT/1.2.3",
		},
		{
			name:   "ShortTimeKept",
			mutate: func(md *dicom.Metadata) { md.StudyTime = "1015" },
			want:   "12345.ab/210318_1015/S2_CT/1.2.3",
		},
		{
			name:   "MissingDescription",
			mutate: func(md *dicom.Metadata) { md.SeriesDescription = "" },
			want:   "12345.ab/210318_101500/S2_/1.2.3",
		},
		{
			name:   "PaddingTrimmed",
			mutate: func(md *dicom.Metadata) {
				md.SeriesNumber = "2 "
				md.InstanceID = "1.2.3\x00"
			},
			want:   "12345.ab/210318_101500/S2_CT/1.2.3",
		},
		{
			name:   "SeparatorsReplaced",
			mutate: func(md *dicom.Metadata) { md.SeriesDescription = "AX/COR\\SAG" },
			want:   "12345.ab/210318_101500/S2_AX_COR_SAG/1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := scenario()
			tt.mutate(md)

			got, ok := Path("/shadow", md, "")
			assert.True(t, ok)
			assert.Equal(t, filepath.Join("/shadow", filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestPath_Undefined(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(md *dicom.Metadata)
	}{
		{"NoPatient", func(md *dicom.Metadata) {
			md.PatientID = ""
			md.PatientName = ""
		}},
		{"NoStudyDate", func(md *dicom.Metadata) { md.StudyDate = "" }},
		{"DegenerateStudyDate", func(md *dicom.Metadata) { md.StudyDate = "20" }},
		{"NoStudyTime", func(md *dicom.Metadata) { md.StudyTime = "" }},
		{"NoSeriesNumber", func(md *dicom.Metadata) { md.SeriesNumber = "" }},
		{"NoInstance", func(md *dicom.Metadata) { md.InstanceID = "" }},
		{"DotDotPatient", func(md *dicom.Metadata) { md.PatientID = ".." }},
		{"DotInstance", func(md *dicom.Metadata) { md.InstanceID = "." }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := scenario()
			tt.mutate(md)

			_, ok := Path("/shadow", md, "")
			assert.False(t, ok)
		})
	}

	_, ok := Path("/shadow", nil, "")
	assert.False(t, ok)
}

func TestPath_Pure(t *testing.T) {
	first, _ := Path("/shadow", scenario(), ".dcm")
	second, _ := Path("/shadow", scenario(), ".dcm")
	assert.Equal(t, first, second)
}
