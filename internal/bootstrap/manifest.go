// Package bootstrap models the external-tool install contract (spec §6):
// a manifest describing per-platform downloads for ffmpeg/pdfium, archive
// extraction with path-traversal rejection, and a startup probe of the
// well-known install paths. The actual network fetch is out of scope — an
// external collaborator the rest of the daemon never drives directly.
package bootstrap

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToolBuild is one platform's download entry for a tool.
type ToolBuild struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA256  string `json:"sha256"`
	Path    string `json:"path"`
}

// Manifest enumerates, per external tool, a per-platform-key build. Platform
// keys follow Go's GOOS-GOARCH convention ("linux-amd64", "windows-amd64",
// "darwin-arm64", ...).
type Manifest struct {
	Tools map[string]map[string]ToolBuild `json:"tools"`
}

// Lookup returns the build entry for tool on the given platform key.
func (m Manifest) Lookup(tool, platformKey string) (ToolBuild, bool) {
	builds, ok := m.Tools[tool]
	if !ok {
		return ToolBuild{}, false
	}
	b, ok := builds[platformKey]
	return b, ok
}

// ParseManifest decodes a bootstrap manifest document.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
