package python

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
)

// Download is one entry of a download-metadata.json file.
type Download struct {
	Name       string       `json:"name"`
	Arch       DownloadArch `json:"arch"`
	OS         string       `json:"os"`
	Libc       string       `json:"libc"`
	Major      uint8        `json:"major"`
	Minor      uint8        `json:"minor"`
	Patch      uint8        `json:"patch"`
	Prerelease string       `json:"prerelease"`
	URL        string       `json:"url"`
	SHA256     *string      `json:"sha256"`
	Variant    *string      `json:"variant"`
}

// DownloadArch is the architecture of a download, e.g. {"x86_64", "v2"}.
type DownloadArch struct {
	Family  string  `json:"family"`
	Variant *string `json:"variant"`
}

// LoadDownloads reads a download-metadata.json file. The result is ordered
// by key, newest version first within a key prefix.
func LoadDownloads(path string) ([]Download, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byKey map[string]Download
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	out := make([]Download, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out, nil
}

// InstallationKey returns the key the download would install as.
func (d Download) InstallationKey() (InstallationKey, error) {
	impl, ok := ParseImplementation(d.Name)
	if !ok {
		return InstallationKey{}, fmt.Errorf("unknown implementation `%s`", d.Name)
	}
	version, err := ParseVersion(fmt.Sprintf("%d.%d.%d%s", d.Major, d.Minor, d.Patch, d.Prerelease))
	if err != nil {
		return InstallationKey{}, err
	}
	variant := VariantDefault
	if d.Variant != nil {
		if *d.Variant != "freethreaded" {
			return InstallationKey{}, fmt.Errorf("unsupported variant `%s`", *d.Variant)
		}
		variant = VariantFreethreaded
	}
	return InstallationKey{
		Implementation: impl,
		Version:        version,
		Platform:       Platform{OS: d.OS, Arch: d.Arch.Family, Libc: d.Libc},
		Variant:        variant,
	}, nil
}

// HostPlatform describes the running system. Libc is left empty on Linux
// because it cannot be known without probing an interpreter.
func HostPlatform() Platform {
	p := Platform{OS: runtime.GOOS, Arch: runtime.GOARCH, Libc: "none"}
	switch p.OS {
	case "darwin":
		p.OS = "macos"
	case "linux":
		p.Libc = ""
	}
	switch p.Arch {
	case "amd64":
		p.Arch = "x86_64"
	case "arm64":
		p.Arch = "aarch64"
	case "386":
		p.Arch = "x86"
	}
	return p
}

// FindDownload returns the first download for host that would satisfy req.
func FindDownload(downloads []Download, req Request, host Platform) (Download, bool) {
	if req.IsPath() || req.IsArbitraryName() {
		return Download{}, false
	}
	for _, d := range downloads {
		key, err := d.InstallationKey()
		if err != nil {
			continue
		}
		if key.Platform.OS != host.OS || key.Platform.Arch != host.Arch {
			continue
		}
		if host.Libc != "" && !strings.EqualFold(key.Platform.Libc, host.Libc) {
			continue
		}
		if key.Implementation != CPython && req.Kind != RequestImplementation &&
			req.Kind != RequestImplementationVersion && req.Kind != RequestKey {
			continue
		}
		if req.allowsKey(key) {
			return d, true
		}
	}
	return Download{}, false
}
