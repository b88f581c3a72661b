// Package shadow maintains the human-navigable shadow tree: a secondary index
// of filesystem links into the primary store, laid out by patient, study and
// series.
//
// The tree is advisory. Nothing in this package returns an error that should
// fail a storage operation; callers log outcomes and move on.
package shadow

import (
	"path/filepath"
	"strings"

	"github.com/marmos91/shadowfs/pkg/dicom"
)

const (
	// studyDatePrefixLen is the number of leading characters dropped from the
	// study date (the century), giving YYMMDD folder names.
	studyDatePrefixLen = 2

	// studyTimeWidth is the number of characters kept from the study time
	// (HHMMSS, without fractional seconds).
	studyTimeWidth = 6

	// seriesPrefix starts every series folder name.
	seriesPrefix = "S"
)

// Path derives the shadow location of an object from its metadata:
//
//	<root>/<patientKey>/<date[2:]>_<time[:6]>/S<seriesNumber>_<seriesDescription>/<instanceID><ext>
//
// It is a pure function of its arguments. The date and time truncation is
// intentional and only serves readable folder names.
//
// Returns false when md is nil, or when the patient key (ID, else name), study
// date, study time, series number or instance ID is missing, or when a
// segment would be "." or "..". SeriesDescription may be empty.
func Path(root string, md *dicom.Metadata, ext string) (string, bool) {
	if md == nil {
		return "", false
	}

	patient := sanitize(md.PatientKey())
	date := sanitize(md.StudyDate)
	clock := sanitize(md.StudyTime)
	series := sanitize(md.SeriesNumber)
	instance := sanitize(md.InstanceID)

	if patient == "" || len(date) <= studyDatePrefixLen || clock == "" || series == "" || instance == "" {
		return "", false
	}

	if len(clock) > studyTimeWidth {
		clock = clock[:studyTimeWidth]
	}

	segments := []string{
		patient,
		date[studyDatePrefixLen:] + "_" + clock,
		seriesPrefix + series + "_" + sanitize(md.SeriesDescription),
		instance + ext,
	}
	for _, s := range segments {
		if s == "." || s == ".." {
			return "", false
		}
	}

	return filepath.Join(append([]string{root}, segments...)...), true
}

// sanitize trims DICOM padding and replaces characters that would change the
// directory structure.
func sanitize(value string) string {
	value = strings.TrimSpace(strings.Trim(value, "\x00"))
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, value)
}
