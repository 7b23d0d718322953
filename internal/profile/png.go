package profile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

const metersPerInch = 0.0254

// Chunk is a PNG chunk without its length and CRC framing.
type Chunk struct {
	Type string
	Data []byte
}

// Category names the profile kind a chunk carries, or "".
func (c Chunk) Category() string {
	switch c.Type {
	case "iCCP":
		return CategoryICC
	case "eXIf":
		return CategoryEXIF
	case "tEXt", "zTXt", "iTXt":
		if textKey(c.Data) == "XML:com.adobe.xmp" {
			return CategoryXMP
		}
		return CategoryText
	default:
		return ""
	}
}

func (c Chunk) writeTo(w io.Writer) error {
	if len(c.Type) != 4 {
		return fmt.Errorf("invalid PNG chunk type %q", c.Type)
	}
	var head [8]byte
	binary.BigEndian.PutUint32(head[:4], uint32(len(c.Data)))
	copy(head[4:], c.Type)
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	if _, err := w.Write(c.Data); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	_, _ = crc.Write(head[4:])
	_, _ = crc.Write(c.Data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := w.Write(sum[:])
	return err
}

// readPNG calls visit for every chunk up to and including IEND. The chunk
// CRC is not verified; the decoder already did so.
func readPNG(r io.Reader, visit func(Chunk) error) error {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return err
	}
	if !bytes.Equal(sig, pngSignature) {
		return fmt.Errorf("invalid PNG signature")
	}

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			return err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(br, data); err != nil {
			return err
		}
		if _, err := io.CopyN(io.Discard, br, 4); err != nil {
			return err
		}

		chunk := Chunk{Type: string(typeBuf), Data: data}
		if err := visit(chunk); err != nil {
			return err
		}
		if chunk.Type == "IEND" {
			return nil
		}
	}
}

// ExtractPNG returns the profile chunks (ICC, EXIF, text, XMP) of a PNG
// stream in their original order.
func ExtractPNG(r io.Reader) ([]Chunk, error) {
	var chunks []Chunk
	err := readPNG(r, func(c Chunk) error {
		if c.Category() != "" {
			chunks = append(chunks, c)
		}
		return nil
	})
	return chunks, err
}

// WritePNG copies the PNG stream from r to w, inserting profiles and, when
// ppi is positive, a pHYs chunk directly after IHDR. Both must precede
// PLTE and IDAT, which IHDR always does.
func WritePNG(w io.Writer, r io.Reader, profiles []Chunk, ppi int) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(pngSignature); err != nil {
		return err
	}

	err := readPNG(r, func(c Chunk) error {
		if ppi > 0 && c.Type == "pHYs" {
			return nil
		}
		if c.Category() != "" && len(profiles) > 0 {
			// replaced by the source's profiles
			return nil
		}
		if err := c.writeTo(bw); err != nil {
			return err
		}
		if c.Type != "IHDR" {
			return nil
		}
		if ppi > 0 {
			if err := physChunk(ppi).writeTo(bw); err != nil {
				return err
			}
		}
		for _, p := range profiles {
			if err := p.writeTo(bw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

func physChunk(ppi int) Chunk {
	ppm := uint32(math.Round(float64(ppi) / metersPerInch))
	data := make([]byte, 9)
	binary.BigEndian.PutUint32(data[0:4], ppm)
	binary.BigEndian.PutUint32(data[4:8], ppm)
	data[8] = 1 // unit: meter
	return Chunk{Type: "pHYs", Data: data}
}

// physDensity converts a pHYs chunk to pixels per inch, or 0 when the
// chunk only states an aspect ratio.
func physDensity(c Chunk) int {
	if c.Type != "pHYs" || len(c.Data) < 9 || c.Data[8] != 1 {
		return 0
	}
	ppm := binary.BigEndian.Uint32(c.Data[0:4])
	return int(math.Round(float64(ppm) * metersPerInch))
}

func textKey(data []byte) string {
	for i, v := range data {
		if v == 0 {
			return string(data[:i])
		}
	}
	return ""
}
