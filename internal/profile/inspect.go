package profile

import (
	"io"
	"sort"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"resizer/pkg/imgutil"
)

// Report summarises the metadata embedded in one image.
type Report struct {
	// Categories lists profile kinds present, deduplicated and sorted.
	Categories []string
	ExifTags   int
	HasGPS     bool
	Model      string
	Taken      string
	TextKeys   []string
	// PPI is the declared density, 0 when absent.
	PPI int
}

// Inspect reads the metadata of the image in r.
func Inspect(kind imgutil.Kind, r io.Reader) (Report, error) {
	var report Report
	seen := map[string]bool{}
	add := func(cat string) {
		if cat != "" && !seen[cat] {
			seen[cat] = true
			report.Categories = append(report.Categories, cat)
		}
	}

	switch kind {
	case imgutil.KindJPEG:
		_, err := readJPEGHeader(r, func(s Segment) error {
			if d := jfifDensity(s); d > 0 {
				report.PPI = d
			}
			cat := s.Category()
			add(cat)
			if cat == CategoryEXIF {
				analyzeExif(s.Payload[len(jpegExifHeader):], &report)
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	case imgutil.KindPNG:
		err := readPNG(r, func(c Chunk) error {
			if d := physDensity(c); d > 0 {
				report.PPI = d
			}
			cat := c.Category()
			add(cat)
			switch cat {
			case CategoryEXIF:
				analyzeExif(c.Data, &report)
			case CategoryText:
				if key := textKey(c.Data); key != "" {
					report.TextKeys = append(report.TextKeys, key)
				}
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	case imgutil.KindTIFF:
		data, err := io.ReadAll(r)
		if err != nil {
			return report, err
		}
		analyzeExif(data, &report)
		if report.ExifTags > 0 {
			add(CategoryEXIF)
		}
	}

	sort.Strings(report.Categories)
	return report, nil
}

// analyzeExif folds the tags of a TIFF-structured EXIF block into report.
// Missing or unparseable EXIF is not an error.
func analyzeExif(data []byte, report *Report) {
	tags, _, err := exif.GetFlatExifData(data, nil)
	if err != nil {
		return
	}

	for _, tag := range tags {
		report.ExifTags++
		name := tag.TagName
		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			report.HasGPS = true
		}
		switch name {
		case "Model", "CameraModelName":
			if report.Model == "" {
				report.Model = strings.TrimSpace(tag.FormattedFirst)
			}
		case "DateTimeOriginal", "DateTime":
			if report.Taken == "" || name == "DateTimeOriginal" {
				report.Taken = strings.TrimSpace(tag.FormattedFirst)
			}
		}
	}
}
