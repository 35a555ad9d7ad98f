package binary

import "runtime"

const unknownPlatform = "unknown"

var knownOS = map[string]bool{
	"darwin":  true,
	"linux":   true,
	"windows": true,
	"freebsd": true,
}

var archTags = map[string]string{
	"amd64":   "amd64",
	"arm64":   "arm64",
	"arm":     "arm",
	"386":     "386",
	"riscv64": "riscv64",
}

// PlatformTag maps a Go OS/arch pair to the canonical "<os>-<arch>" tag.
// Either half falls back to "unknown" when unrecognized.
func PlatformTag(goos, goarch string) string {
	osTag := unknownPlatform
	if knownOS[goos] {
		osTag = goos
	}

	archTag, ok := archTags[goarch]
	if !ok {
		archTag = unknownPlatform
	}

	return osTag + "-" + archTag
}

// CurrentPlatform returns the tag for the running binary.
func CurrentPlatform() string {
	return PlatformTag(runtime.GOOS, runtime.GOARCH)
}
