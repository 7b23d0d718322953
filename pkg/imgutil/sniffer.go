package imgutil

import (
	"errors"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Kind identifies an image container format recognised by content sniffing.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindGIF
	KindTIFF
	KindBMP
	KindWebP
	KindPGM
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	case KindTIFF:
		return "tiff"
	case KindBMP:
		return "bmp"
	case KindWebP:
		return "webp"
	case KindPGM:
		return "pgm"
	default:
		return "unknown"
	}
}

// Animated reports whether the format may carry multiple frames and is
// therefore gated behind --allow-gif.
func (k Kind) Animated() bool {
	return k == KindGIF
}

// Encodable reports whether output in this format can be written.
func (k Kind) Encodable() bool {
	switch k {
	case KindJPEG, KindPNG, KindGIF, KindTIFF, KindBMP:
		return true
	default:
		return false
	}
}

// Lossy reports whether the quality setting affects the encoder.
func (k Kind) Lossy() bool {
	return k == KindJPEG
}

// mimeKinds is checked in order with mimetype's alias-aware Is, so APNG
// resolves to PNG through its parent type.
var mimeKinds = []struct {
	mime string
	kind Kind
}{
	{"image/jpeg", KindJPEG},
	{"image/png", KindPNG},
	{"image/vnd.mozilla.apng", KindPNG},
	{"image/gif", KindGIF},
	{"image/tiff", KindTIFF},
	{"image/bmp", KindBMP},
	{"image/webp", KindWebP},
	{"image/x-portable-graymap", KindPGM},
}

// DetectHeader inspects the leading bytes of a file.
func DetectHeader(header []byte) Kind {
	return kindOf(mimetype.Detect(header))
}

// SniffFile reads the head of a file to determine its type.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	return SniffReader(f)
}

// sniffLen matches the number of bytes mimetype inspects by default.
const sniffLen = 3072

// SniffReader reads the head of r and determines its type. Short inputs are
// not an error; they simply sniff as KindUnknown.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return KindUnknown, err
	}
	return DetectHeader(header[:n]), nil
}

func kindOf(mt *mimetype.MIME) Kind {
	if mt == nil {
		return KindUnknown
	}
	for _, entry := range mimeKinds {
		if mt.Is(entry.mime) {
			return entry.kind
		}
	}
	return KindUnknown
}
