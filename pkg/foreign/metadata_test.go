package foreign

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleControl = `Package: sample
Version: 2.3.1
Architecture: amd64
Maintainer: NAS Forge <dev@nasforge.example>
Installed-Size: 1024
Depends: libc6 (>= 2.17)
Description: A sample media tool
 This longer paragraph continues the description and
 must not overwrite the summary line.
`

func TestParseControl(t *testing.T) {
	meta := ParseControl(strings.NewReader(sampleControl))

	assert.Equal(t, "sample", meta.Name)
	assert.Equal(t, "2.3.1", meta.Version)
	assert.Equal(t, "amd64", meta.Architecture)
	assert.Equal(t, "NAS Forge <dev@nasforge.example>", meta.Maintainer)
	assert.Equal(t, "A sample media tool", meta.Summary)
}

func TestParseControlPartial(t *testing.T) {
	meta := ParseControl(strings.NewReader("Version: 1.0\njunk line without separator\n"))

	assert.Equal(t, "1.0", meta.Version)
	assert.Empty(t, meta.Name)
	assert.Empty(t, meta.Summary)
}

func TestMetadataDescriptor(t *testing.T) {
	meta := Metadata{Name: "libfoo++", Version: "1.2", Summary: "sum", Maintainer: "who"}
	desc := meta.Descriptor()

	assert.Equal(t, "libfoo--", desc.Name)
	assert.Equal(t, "libfoo++", desc.DisplayName)
	assert.Equal(t, "1.2", desc.Version)
	assert.Equal(t, "sum", desc.Summary)
	assert.Equal(t, "who", desc.Author)
}

func TestArchitectureMatches(t *testing.T) {
	testCases := []struct {
		declared string
		goarch   string
		want     bool
	}{
		{"amd64", "amd64", true},
		{"x86_64", "amd64", true},
		{"aarch64", "arm64", true},
		{"arm64", "arm64", true},
		{"i386", "386", true},
		{"armhf", "arm", true},
		{"all", "amd64", true},
		{"noarch", "arm64", true},
		{"", "amd64", true},
		{"AMD64", "amd64", true},
		{"amd64", "arm64", false},
		{"armhf", "amd64", false},
		{"mips", "amd64", false},
	}

	for _, tc := range testCases {
		assert.Equalf(t, tc.want, ArchitectureMatches(tc.declared, tc.goarch),
			"declared %q on %q", tc.declared, tc.goarch)
	}
}
