package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformTag(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "linux-amd64"},
		{"darwin", "arm64", "darwin-arm64"},
		{"windows", "386", "windows-386"},
		{"freebsd", "riscv64", "freebsd-riscv64"},
		{"linux", "arm", "linux-arm"},
		{"linux", "mips64", "linux-unknown"},
		{"plan9", "amd64", "unknown-amd64"},
		{"aix", "ppc64", "unknown-unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, PlatformTag(tt.goos, tt.goarch))
		})
	}
}

func TestCurrentPlatform(t *testing.T) {
	assert.NotEmpty(t, CurrentPlatform())
	assert.Contains(t, CurrentPlatform(), "-")
}
