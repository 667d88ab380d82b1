package bootstrap

import (
	"os"
	"path/filepath"
	"runtime"
)

// ToolCapabilities records which external rendering tools are available on
// this machine, discovered purely by probing well-known install paths. No
// network access happens here; a real install is assumed to have already
// placed binaries under <data>/Lunio/runtime/{ffmpeg,pdfium}/ before the
// daemon starts.
type ToolCapabilities struct {
	FFmpegPath string
	PdfiumPath string
}

// HasVideo reports whether video thumbnail rendering is available.
func (c ToolCapabilities) HasVideo() bool { return c.FFmpegPath != "" }

// HasPdf reports whether PDF thumbnail rendering is available.
func (c ToolCapabilities) HasPdf() bool { return c.PdfiumPath != "" }

func ffmpegBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func pdfiumLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "pdfium.dll"
	case "darwin":
		return "libpdfium.dylib"
	default:
		return "libpdfium.so"
	}
}

// Probe inspects dataDir/Lunio/runtime/{ffmpeg,pdfium}/ for the expected
// binaries and returns whichever are present. A missing tool simply leaves
// its path empty; the thumbnail renderer then fails requests of the
// corresponding source kind with a "... not installed" error rather than
// the daemon failing to start.
func Probe(dataDir string) ToolCapabilities {
	runtimeDir := filepath.Join(dataDir, "Lunio", "runtime")

	var caps ToolCapabilities
	ffmpeg := filepath.Join(runtimeDir, "ffmpeg", ffmpegBinaryName())
	if fileExists(ffmpeg) {
		caps.FFmpegPath = ffmpeg
	}
	pdfium := filepath.Join(runtimeDir, "pdfium", pdfiumLibraryName())
	if fileExists(pdfium) {
		caps.PdfiumPath = pdfium
	}
	return caps
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
