package profile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	markerAPP0 = 0xe0
	markerAPP1 = 0xe1
	markerAPP2 = 0xe2
	markerIPTC = 0xed
	markerSOS  = 0xda
	markerEOI  = 0xd9
)

var (
	jpegJFIFHeader = []byte("JFIF\x00")
	jpegExifHeader = []byte("Exif\x00\x00")
	jpegXmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	jpegPhotoshop  = []byte("Photoshop 3.0\x00")
	jpegICCHeader  = []byte("ICC_PROFILE\x00")
)

// Segment is a JPEG marker segment preceding the scan data.
type Segment struct {
	Marker  byte
	Payload []byte
}

// Category names the profile kind a segment carries, or "" for segments
// that are not profiles.
func (s Segment) Category() string {
	switch s.Marker {
	case markerAPP1:
		if bytes.HasPrefix(s.Payload, jpegExifHeader) {
			return CategoryEXIF
		}
		if bytes.HasPrefix(s.Payload, jpegXmpHeader) {
			return CategoryXMP
		}
	case markerAPP2:
		if bytes.HasPrefix(s.Payload, jpegICCHeader) {
			return CategoryICC
		}
	case markerIPTC:
		if bytes.HasPrefix(s.Payload, jpegPhotoshop) {
			return CategoryIPTC
		}
	}
	return ""
}

func (s Segment) writeTo(w io.Writer) error {
	if len(s.Payload)+2 > 0xffff {
		return fmt.Errorf("JPEG segment too large (%d bytes)", len(s.Payload))
	}
	var head [4]byte
	head[0] = 0xff
	head[1] = s.Marker
	binary.BigEndian.PutUint16(head[2:], uint16(len(s.Payload)+2))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(s.Payload)
	return err
}

// readJPEGHeader calls visit for every marker segment up to the start of
// scan. It returns the buffered reader positioned right after the SOS
// marker, or nil if EOI was reached first.
func readJPEGHeader(r io.Reader, visit func(Segment) error) (*bufio.Reader, error) {
	br := bufio.NewReader(r)

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return nil, err
	}
	if soi[0] != 0xff || soi[1] != 0xd8 {
		return nil, fmt.Errorf("invalid JPEG SOI")
	}

	for {
		markerPrefix, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		for markerPrefix != 0xff {
			markerPrefix, err = br.ReadByte()
			if err != nil {
				return nil, err
			}
		}

		marker, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		for marker == 0xff {
			marker, err = br.ReadByte()
			if err != nil {
				return nil, err
			}
		}

		switch {
		case marker == markerEOI:
			return nil, nil
		case marker == markerSOS:
			return br, nil
		case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
			// standalone markers carry no length
			if err := visit(Segment{Marker: marker}); err != nil {
				return nil, err
			}
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return nil, err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return nil, fmt.Errorf("invalid JPEG segment length")
		}
		payload := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, err
		}
		if err := visit(Segment{Marker: marker, Payload: payload}); err != nil {
			return nil, err
		}
	}
}

// ExtractJPEG returns the profile segments (EXIF, XMP, ICC, IPTC) of a
// JPEG stream in their original order.
func ExtractJPEG(r io.Reader) ([]Segment, error) {
	var segs []Segment
	_, err := readJPEGHeader(r, func(s Segment) error {
		if s.Category() != "" {
			segs = append(segs, s)
		}
		return nil
	})
	return segs, err
}

// WriteJPEG copies the JPEG stream from r to w, inserting profiles right
// after SOI. When ppi is positive a JFIF segment declaring that density is
// written first and any existing JFIF segment is dropped.
func WriteJPEG(w io.Writer, r io.Reader, profiles []Segment, ppi int) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write([]byte{0xff, 0xd8}); err != nil {
		return err
	}
	if ppi > 0 {
		if err := jfifSegment(ppi).writeTo(bw); err != nil {
			return err
		}
	}
	for _, s := range profiles {
		if err := s.writeTo(bw); err != nil {
			return err
		}
	}

	br, err := readJPEGHeader(r, func(s Segment) error {
		if s.Category() != "" {
			return nil
		}
		if ppi > 0 && s.Marker == markerAPP0 && bytes.HasPrefix(s.Payload, jpegJFIFHeader) {
			return nil
		}
		if s.Payload == nil {
			_, err := bw.Write([]byte{0xff, s.Marker})
			return err
		}
		return s.writeTo(bw)
	})
	if err != nil {
		return err
	}

	if br == nil {
		if _, err := bw.Write([]byte{0xff, markerEOI}); err != nil {
			return err
		}
		return bw.Flush()
	}

	if _, err := bw.Write([]byte{0xff, markerSOS}); err != nil {
		return err
	}
	if _, err := io.Copy(bw, br); err != nil {
		return err
	}
	return bw.Flush()
}

// jfifSegment builds a JFIF 1.01 APP0 segment with density in dots per inch.
func jfifSegment(ppi int) Segment {
	payload := make([]byte, 0, 14)
	payload = append(payload, jpegJFIFHeader...)
	payload = append(payload, 0x01, 0x01, 0x01)
	payload = binary.BigEndian.AppendUint16(payload, uint16(ppi))
	payload = binary.BigEndian.AppendUint16(payload, uint16(ppi))
	payload = append(payload, 0x00, 0x00)
	return Segment{Marker: markerAPP0, Payload: payload}
}

// jfifDensity reads the horizontal density of a JFIF segment in dots per
// inch, or 0 when the segment declares no absolute unit.
func jfifDensity(s Segment) int {
	if s.Marker != markerAPP0 || !bytes.HasPrefix(s.Payload, jpegJFIFHeader) || len(s.Payload) < 12 {
		return 0
	}
	x := int(binary.BigEndian.Uint16(s.Payload[8:10]))
	switch s.Payload[7] {
	case 1:
		return x
	case 2:
		return int(float64(x)*2.54 + 0.5)
	default:
		return 0
	}
}
