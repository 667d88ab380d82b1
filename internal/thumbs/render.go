package thumbs

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"time"

	"github.com/ebitengine/purego"
)

// Renderer produces a PNG at destPath for a source of a given kind, scaled
// so that the constrained dimension fits within size.
type Renderer interface {
	Render(ctx context.Context, source Source, size uint32, destPath string) error
}

// ExternalTools are the probed paths to the out-of-process frame extractor
// and the dynamic PDF rasterizer library (internal/bootstrap.ToolCapabilities
// feeds this in production; tests construct it directly).
type ExternalTools struct {
	FFmpegPath string
	PdfiumPath string
}

type dispatchRenderer struct {
	tools ExternalTools
}

// NewRenderer returns the format-dispatching renderer workers use: decode
// locally for images, shell out to the frame extractor for video, bind the
// rasterizer library for PDF, and fail fast for anything else.
func NewRenderer(tools ExternalTools) Renderer {
	return &dispatchRenderer{tools: tools}
}

func (d *dispatchRenderer) Render(ctx context.Context, source Source, size uint32, destPath string) error {
	switch source.Kind {
	case SourceImage:
		return renderImage(source.Path, size, destPath)
	case SourceVideo:
		return renderVideo(ctx, d.tools.FFmpegPath, source.Path, size, destPath)
	case SourcePdf:
		return renderPdf(d.tools.PdfiumPath, source.Path, size, destPath)
	default:
		return fmt.Errorf("unsupported format")
	}
}

// renderImage decodes src, resizes so max(w,h) <= size preserving aspect
// ratio (nearest-neighbor — the pack carries no dedicated resize library),
// and PNG-encodes atomically to dest.
func renderImage(src string, size uint32, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	resized := resizeToMax(img, int(size))
	return writeAtomicPNG(dest, resized)
}

func resizeToMax(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || maxDim <= 0 {
		return src
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	if scale >= 1 {
		return src
	}
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		sy := b.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			sx := b.Min.X + x*w/newW
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func writeAtomicPNG(dest string, img image.Image) error {
	tmp, err := os.CreateTemp(dirOf(dest), ".thumb-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dest)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}

// renderVideo seeks 1s into src, takes one frame, scales to height=size,
// and captures a PNG from the extractor's stdout, bounded by a hard 10s
// wall-clock timeout per spec §5.
func renderVideo(ctx context.Context, ffmpegPath, src string, size uint32, dest string) error {
	if ffmpegPath == "" {
		return fmt.Errorf("video thumbnail unavailable: frame extractor not installed")
	}
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, ffmpegPath,
		"-ss", "1",
		"-i", src,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=-1:%d", size),
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("frame extractor: %w", err)
	}

	tmp, err := os.CreateTemp(dirOf(dest), ".thumb-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dest)
}

// pdfium function pointers bound once via purego, lazily, the first time a
// PDF thumbnail is requested.
var (
	pdfiumHandle    uintptr
	pdfiumRenderPNG func(srcPath string, width int32, dstPath string) int32
)

func bindPdfium(libPath string) error {
	if pdfiumHandle != 0 {
		return nil
	}
	handle, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return err
	}
	var fn func(srcPath string, width int32, dstPath string) int32
	purego.RegisterLibFunc(&fn, handle, "lunio_pdfium_render_first_page_png")
	pdfiumHandle = handle
	pdfiumRenderPNG = fn
	return nil
}

// renderPdf binds the rasterizer library (a thin C shim over pdfium
// exposing lunio_pdfium_render_first_page_png), opens the first page, and
// renders it at width<=size directly to a PNG file.
func renderPdf(libPath, src string, size uint32, dest string) error {
	if libPath == "" {
		return fmt.Errorf("pdf thumbnail unavailable: rasterizer not installed")
	}
	if err := bindPdfium(libPath); err != nil {
		return fmt.Errorf("pdfium: %w", err)
	}
	tmp := dest + ".tmp"
	if rc := pdfiumRenderPNG(src, int32(size), tmp); rc != 0 {
		os.Remove(tmp)
		return fmt.Errorf("pdfium: render failed (code %d)", rc)
	}
	return os.Rename(tmp, dest)
}
