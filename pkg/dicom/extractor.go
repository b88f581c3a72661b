// Package dicom extracts the identifying fields used to place an object in the
// shadow tree.
//
// Parsing is delegated to github.com/suyashkumar/dicom. The extractor is
// best-effort: it never panics on malformed input and reports "not
// applicable" through an error wrapping content.ErrExtractionFailure.
package dicom

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/marmos91/shadowfs/pkg/content"
)

// Metadata holds the fields read from a DICOM object. Any field may be empty
// when the tag is absent.
type Metadata struct {
	PatientID         string
	PatientName       string
	StudyDate         string
	StudyTime         string
	SeriesNumber      string
	SeriesDescription string
	InstanceID        string
}

// PatientKey returns the patient identifier, falling back to the patient name.
func (m *Metadata) PatientKey() string {
	if m.PatientID != "" {
		return m.PatientID
	}
	return m.PatientName
}

func (m *Metadata) empty() bool {
	return *m == Metadata{}
}

// Extractor turns content bytes into Metadata.
//
// Implementations must be safe for concurrent use and must not retain or
// modify data.
type Extractor interface {
	Extract(data []byte) (*Metadata, error)
}

// Options configures the DICOM parser.
type Options struct {
	// MaxBytes skips extraction for objects larger than this (0 = no limit).
	MaxBytes int64 `mapstructure:"max_bytes"`

	// SkipPixelData avoids decoding pixel data, which is never needed for
	// metadata.
	SkipPixelData bool `mapstructure:"skip_pixel_data"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{SkipPixelData: true}
}

// Parser is the Extractor backed by github.com/suyashkumar/dicom.
type Parser struct {
	opts Options
}

// NewParser creates a Parser with the given options.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Extract parses data and returns the identifying fields.
//
// Returns an error wrapping content.ErrExtractionFailure when data is empty,
// larger than MaxBytes, not parseable as DICOM, or carries none of the
// fields. A partially populated Metadata is returned without error.
func (p *Parser) Extract(data []byte) (md *Metadata, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty content: %w", content.ErrExtractionFailure)
	}
	if p.opts.MaxBytes > 0 && int64(len(data)) > p.opts.MaxBytes {
		return nil, fmt.Errorf("content of %d bytes exceeds limit of %d: %w",
			len(data), p.opts.MaxBytes, content.ErrExtractionFailure)
	}

	// The parser works on untrusted bytes.
	defer func() {
		if r := recover(); r != nil {
			md = nil
			err = fmt.Errorf("parser panic: %v: %w", r, content.ErrExtractionFailure)
		}
	}()

	var parseOpts []godicom.ParseOption
	if p.opts.SkipPixelData {
		parseOpts = append(parseOpts, godicom.SkipPixelData())
	}

	ds, err := godicom.Parse(bytes.NewReader(data), int64(len(data)), nil, parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse: %v: %w", err, content.ErrExtractionFailure)
	}

	md = &Metadata{
		PatientID:         findString(&ds, tag.PatientID),
		PatientName:       findString(&ds, tag.PatientName),
		StudyDate:         findString(&ds, tag.StudyDate),
		StudyTime:         findString(&ds, tag.StudyTime),
		SeriesNumber:      findString(&ds, tag.SeriesNumber),
		SeriesDescription: findString(&ds, tag.SeriesDescription),
		InstanceID:        findString(&ds, tag.SOPInstanceUID),
	}
	if md.empty() {
		return nil, fmt.Errorf("no identifying fields: %w", content.ErrExtractionFailure)
	}

	return md, nil
}

// findString returns the first value of a top-level element as a string, with
// DICOM padding removed.
func findString(ds *godicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return ""
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) > 0 {
			return strings.Trim(v[0], " \x00")
		}
	case []int:
		if len(v) > 0 {
			return strconv.Itoa(v[0])
		}
	}
	return ""
}

// Disabled is the Extractor used when metadata extraction is turned off. It
// reports every object as not applicable, so no shadow links are created.
type Disabled struct{}

// Extract always fails with content.ErrExtractionFailure.
func (Disabled) Extract([]byte) (*Metadata, error) {
	return nil, fmt.Errorf("extraction disabled: %w", content.ErrExtractionFailure)
}
