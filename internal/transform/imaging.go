package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"resizer/internal/options"
	"resizer/internal/profile"
	"resizer/pkg/imgutil"
)

var imagingFormats = map[imgutil.Kind]imaging.Format{
	imgutil.KindJPEG: imaging.JPEG,
	imgutil.KindPNG:  imaging.PNG,
	imgutil.KindGIF:  imaging.GIF,
	imgutil.KindTIFF: imaging.TIFF,
	imgutil.KindBMP:  imaging.BMP,
}

// Imaging transforms images with github.com/disintegration/imaging. The
// output keeps the input's format.
//
// image/jpeg always writes 4:2:0 subsampling, so ChromaQuartered needs no
// extra handling here.
type Imaging struct{}

// NewImaging returns the default Transformer.
func NewImaging() *Imaging {
	return &Imaging{}
}

// Transform implements Transformer.
func (t *Imaging) Transform(ctx context.Context, req Request) (Result, error) {
	format, ok := imagingFormats[req.Kind]
	if !ok {
		return Result{}, newError(CodeUnsupportedFormat, req.InputPath, fmt.Errorf("no encoder for %s", req.Kind))
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		return Result{}, newError(CodeIO, req.InputPath, err)
	}
	dest, err := resolveOutput(req)
	if err != nil {
		return Result{}, newError(CodeIO, req.OutputPath, err)
	}
	src, err := os.ReadFile(req.InputPath)
	if err != nil {
		return Result{}, newError(CodeIO, req.InputPath, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, newError(CodeIO, req.InputPath, err)
	}

	var (
		encoded []byte
		res     Result
	)
	if req.Kind == imgutil.KindGIF {
		encoded, res, err = resizeGIF(src, req)
	} else {
		encoded, res, err = resizeStill(src, format, req)
	}
	if err != nil {
		return Result{}, err
	}

	encoded, err = profile.Apply(req.Kind, encoded, src, profile.Options{
		Keep: req.Options.RemainProfile,
		PPI:  req.Options.PPI,
	})
	if err != nil {
		return Result{}, newError(CodeEncode, req.OutputPath, err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, newError(CodeIO, req.OutputPath, err)
	}
	n, err := writeAtomic(dest, encoded, info.Mode().Perm())
	if err != nil {
		return Result{}, newError(CodeIO, req.OutputPath, err)
	}
	res.BytesWritten = n
	return res, nil
}

func resizeStill(src []byte, format imaging.Format, req Request) ([]byte, Result, error) {
	opts := req.Options

	// Kept EXIF still carries the orientation tag, so rotating the pixels
	// as well would turn the image twice.
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(!opts.RemainProfile))
	if err != nil {
		return nil, Result{}, newError(CodeDecode, req.InputPath, err)
	}

	b := img.Bounds()
	res := Result{SourceWidth: b.Dx(), SourceHeight: b.Dy()}
	res.Width, res.Height = TargetSize(b.Dx(), b.Dy(), opts.SideMaximum, opts.ShrinkOnly)

	if res.Width != b.Dx() || res.Height != b.Dy() {
		img = imaging.Resize(img, res.Width, res.Height, imaging.Lanczos)
	}
	if opts.Sharpen {
		img = imaging.Sharpen(img, sharpenSigma(longest(b.Dx(), b.Dy()), longest(res.Width, res.Height)))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, encodeOptions(req.Kind, opts)...); err != nil {
		return nil, Result{}, newError(CodeEncode, req.OutputPath, err)
	}
	return buf.Bytes(), res, nil
}

// resizeGIF scales every frame and its offset, keeping delays, disposal
// and loop count. Frames are requantised to their own palettes.
func resizeGIF(src []byte, req Request) ([]byte, Result, error) {
	opts := req.Options

	g, err := gif.DecodeAll(bytes.NewReader(src))
	if err != nil {
		return nil, Result{}, newError(CodeDecode, req.InputPath, err)
	}
	if len(g.Image) == 0 {
		return nil, Result{}, newError(CodeDecode, req.InputPath, fmt.Errorf("gif has no frames"))
	}

	w, h := g.Config.Width, g.Config.Height
	if w <= 0 || h <= 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}
	res := Result{SourceWidth: w, SourceHeight: h}
	res.Width, res.Height = TargetSize(w, h, opts.SideMaximum, opts.ShrinkOnly)

	sx := float64(res.Width) / float64(w)
	sy := float64(res.Height) / float64(h)
	sigma := sharpenSigma(longest(w, h), longest(res.Width, res.Height))

	for i, frame := range g.Image {
		fb := frame.Bounds()
		nb := image.Rect(
			scaleCoord(fb.Min.X, sx), scaleCoord(fb.Min.Y, sy),
			scaleCoord(fb.Max.X, sx), scaleCoord(fb.Max.Y, sy),
		)
		nb = fitFrame(nb, res.Width, res.Height)

		var scaled image.Image = frame
		if nb.Dx() != fb.Dx() || nb.Dy() != fb.Dy() {
			scaled = imaging.Resize(frame, nb.Dx(), nb.Dy(), imaging.Lanczos)
		}
		if opts.Sharpen {
			scaled = imaging.Sharpen(scaled, sigma)
		}

		pal := frame.Palette
		if len(pal) == 0 {
			pal = palette.Plan9
		}
		out := image.NewPaletted(nb, pal)
		draw.Draw(out, nb, scaled, scaled.Bounds().Min, draw.Src)
		g.Image[i] = out
	}
	g.Config.Width, g.Config.Height = res.Width, res.Height

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, Result{}, newError(CodeEncode, req.OutputPath, err)
	}
	return buf.Bytes(), res, nil
}

// fitFrame gives a scaled frame rect at least one pixel per side and keeps
// it inside the canvas, which gif.EncodeAll requires.
func fitFrame(r image.Rectangle, width, height int) image.Rectangle {
	w := min(max(r.Dx(), 1), width)
	h := min(max(r.Dy(), 1), height)
	x := min(max(r.Min.X, 0), width-w)
	y := min(max(r.Min.Y, 0), height-h)
	return image.Rect(x, y, x+w, y+h)
}

func encodeOptions(kind imgutil.Kind, opts options.OptionSet) []imaging.EncodeOption {
	encOpts := []imaging.EncodeOption{imaging.GIFNumColors(256)}
	if kind.Lossy() {
		encOpts = append(encOpts, imaging.JPEGQuality(opts.Quality))
	}
	return encOpts
}

// writeAtomic writes data next to dest and renames it into place, so a
// failure never leaves a truncated dest behind.
func writeAtomic(dest string, data []byte, perm fs.FileMode) (int64, error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".resizer-*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return 0, err
	}
	n, err := tmpFile.Write(data)
	if err != nil {
		_ = tmpFile.Close()
		return 0, err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return 0, err
	}
	if err := tmpFile.Close(); err != nil {
		return 0, err
	}

	if err := replaceFile(tmpFile.Name(), dest); err != nil {
		return 0, err
	}
	return int64(n), nil
}

// resolveOutput follows a symlinked input when writing in place, so the
// rename replaces the image the link points to and the link survives.
func resolveOutput(req Request) (string, error) {
	if filepath.Clean(req.InputPath) != filepath.Clean(req.OutputPath) {
		return req.OutputPath, nil
	}
	return filepath.EvalSymlinks(req.OutputPath)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

func scaleCoord(v int, scale float64) int {
	return int(math.Round(float64(v) * scale))
}

func longest(w, h int) int {
	if w > h {
		return w
	}
	return h
}
