// Package transform is the boundary to pixel-level work: resampling,
// sharpening and encoding one image from an input path to an output path.
package transform

import (
	"context"
	"fmt"

	"resizer/internal/options"
	"resizer/pkg/imgutil"
)

// Request describes one transformation.
type Request struct {
	InputPath  string
	OutputPath string
	Kind       imgutil.Kind
	Options    options.OptionSet
}

// Result describes a written output.
type Result struct {
	BytesWritten int64
	SourceWidth  int
	SourceHeight int
	Width        int
	Height       int
}

// Transformer performs a Request. Implementations must not leave a partial
// file at OutputPath when they fail, and must be safe for concurrent use.
type Transformer interface {
	Transform(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to Transformer.
type Func func(ctx context.Context, req Request) (Result, error)

// Transform calls f.
func (f Func) Transform(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Code classifies transform failures.
type Code int

const (
	CodeIO Code = iota
	CodeUnsupportedFormat
	CodeDecode
	CodeEncode
)

func (c Code) String() string {
	switch c {
	case CodeUnsupportedFormat:
		return "unsupported format"
	case CodeDecode:
		return "decode error"
	case CodeEncode:
		return "encode error"
	default:
		return "io error"
	}
}

// Error is returned by transformers for a failed Request.
type Error struct {
	Code Code
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}
