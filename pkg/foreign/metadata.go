package foreign

import (
	"bufio"
	"io"
	"runtime"
	"strings"

	"github.com/nasforge/npk/pkg/npk/format"
)

// Metadata is the parsed control record of a foreign package. All fields
// are optional: whatever the archive does not declare stays empty and the
// caller's defaults win.
type Metadata struct {
	Name         string
	Version      string
	Summary      string
	Maintainer   string
	Architecture string
}

// ParseControl scans a plain "Key: value" control block in a single pass.
// Unknown keys and continuation lines are ignored; a malformed block yields
// whatever fields were readable. Parsing never fails the overall resolve.
func ParseControl(r io.Reader) Metadata {
	var m Metadata

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		// Continuation lines (long Description bodies) start with a space.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Package", "Name":
			m.Name = value
		case "Version":
			m.Version = value
		case "Description", "Summary":
			if m.Summary == "" {
				m.Summary = value
			}
		case "Maintainer", "Packager":
			m.Maintainer = value
		case "Architecture", "Arch":
			m.Architecture = value
		}
	}

	return m
}

// Descriptor builds a package descriptor seeded from the foreign metadata.
// The identifier name is sanitized to the descriptor charset.
func (m Metadata) Descriptor() *format.Descriptor {
	return &format.Descriptor{
		Name:        SanitizeName(m.Name),
		DisplayName: m.Name,
		Version:     m.Version,
		Summary:     m.Summary,
		Author:      m.Maintainer,
	}
}

// SanitizeName maps an arbitrary foreign package name onto the descriptor
// identifier charset, replacing every disallowed rune with a dash.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

// archAliases maps Go architecture names to the foreign package names that
// denote the same hardware.
var archAliases = map[string][]string{
	"amd64": {"amd64", "x86_64"},
	"arm64": {"arm64", "aarch64"},
	"386":   {"i386", "i486", "i586", "i686", "x86"},
	"arm":   {"arm", "armel", "armhf", "armv7"},
}

// ArchitectureMatches reports whether a declared foreign architecture is
// usable on the given Go architecture. Empty and "all"/"noarch" always
// match; mismatches are a warning at resolve time, enforcement happens at
// install time.
func ArchitectureMatches(declared, goarch string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" || declared == "all" || declared == "noarch" || declared == "any" {
		return true
	}

	aliases, ok := archAliases[goarch]
	if !ok {
		aliases = []string{goarch}
	}
	for _, alias := range aliases {
		if declared == alias {
			return true
		}
	}
	return false
}

// HostArchitectureMatches checks the declared architecture against the
// host performing resolution.
func HostArchitectureMatches(declared string) bool {
	return ArchitectureMatches(declared, runtime.GOARCH)
}
