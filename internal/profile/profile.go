// Package profile carries embedded metadata profiles (EXIF, XMP, ICC, IPTC
// and PNG text) and pixel density across a re-encode, and reports what a
// file contains.
//
// Encoders in this module never write profiles of their own, so an output
// is stripped unless Apply is asked to keep the source's profiles.
package profile

import (
	"bytes"

	"resizer/pkg/imgutil"
)

const (
	CategoryEXIF = "EXIF"
	CategoryXMP  = "XMP"
	CategoryICC  = "ICC"
	CategoryIPTC = "IPTC"
	CategoryText = "Text"
)

// Options selects what Apply adds to an encoded image.
type Options struct {
	// Keep copies the source's profiles into the output.
	Keep bool
	// PPI stamps the output density when positive.
	PPI int
}

// Carries reports whether Apply can write profiles and density for kind.
// Other formats pass through Apply unchanged.
func Carries(kind imgutil.Kind) bool {
	return kind == imgutil.KindJPEG || kind == imgutil.KindPNG
}

// Apply post-processes encoded (the re-encoded form of source) according
// to opts. Formats without profile support are returned unchanged.
func Apply(kind imgutil.Kind, encoded, source []byte, opts Options) ([]byte, error) {
	if !Carries(kind) || (!opts.Keep && opts.PPI <= 0) {
		return encoded, nil
	}

	var out bytes.Buffer
	out.Grow(len(encoded) + 1024)

	switch kind {
	case imgutil.KindJPEG:
		var segs []Segment
		if opts.Keep {
			var err error
			if segs, err = ExtractJPEG(bytes.NewReader(source)); err != nil {
				return nil, err
			}
		}
		if err := WriteJPEG(&out, bytes.NewReader(encoded), segs, opts.PPI); err != nil {
			return nil, err
		}
	case imgutil.KindPNG:
		var chunks []Chunk
		if opts.Keep {
			var err error
			if chunks, err = ExtractPNG(bytes.NewReader(source)); err != nil {
				return nil, err
			}
		}
		if err := WritePNG(&out, bytes.NewReader(encoded), chunks, opts.PPI); err != nil {
			return nil, err
		}
	default:
		return encoded, nil
	}
	return out.Bytes(), nil
}
