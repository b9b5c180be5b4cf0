package format

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

func TestFooterRoundTrip(t *testing.T) {
	orig := &Footer{
		Timestamp:   time.Unix(1756100000, 0).UTC(),
		DisplayName: "Media Server",
		Version:     "2.3.1",
	}

	packed := orig.Pack()
	if len(packed) != FooterSize {
		t.Fatalf("Pack() = %d bytes, want %d", len(packed), FooterSize)
	}
	if !strings.HasSuffix(string(packed), FormatName+strings.Repeat(" ", footerMagicLen-len(FormatName))) {
		t.Errorf("footer does not end with padded magic tag: %q", packed[footerMagicOff:])
	}

	parsed, err := ParseFooter(packed)
	if err != nil {
		t.Fatalf("ParseFooter() error: %v", err)
	}
	if !parsed.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, orig.Timestamp)
	}
	if parsed.DisplayName != orig.DisplayName {
		t.Errorf("DisplayName = %q, want %q", parsed.DisplayName, orig.DisplayName)
	}
	if parsed.Version != orig.Version {
		t.Errorf("Version = %q, want %q", parsed.Version, orig.Version)
	}
}

func TestFooterTruncatesOverlongFields(t *testing.T) {
	f := &Footer{
		Timestamp:   time.Unix(1756100000, 0),
		DisplayName: "A Display Name Far Longer Than Twenty Bytes",
		Version:     "1.0.0-beta.2+build.99",
	}

	parsed, err := ParseFooter(f.Pack())
	if err != nil {
		t.Fatalf("ParseFooter() error: %v", err)
	}
	if len(parsed.DisplayName) != footerDisplayLen {
		t.Errorf("DisplayName %q not truncated to %d bytes", parsed.DisplayName, footerDisplayLen)
	}
	if len(parsed.Version) != footerVersionLen {
		t.Errorf("Version %q not truncated to %d bytes", parsed.Version, footerVersionLen)
	}
}

func TestFooterTruncatesOnRuneBoundary(t *testing.T) {
	// Nineteen ASCII bytes followed by a two-byte rune straddling the field
	// edge; a byte-level cut would leave invalid UTF-8 behind.
	f := &Footer{
		Timestamp:   time.Unix(1756100000, 0),
		DisplayName: strings.Repeat("a", footerDisplayLen-1) + "é",
	}

	parsed, err := ParseFooter(f.Pack())
	if err != nil {
		t.Fatalf("ParseFooter() error: %v", err)
	}
	if !utf8.ValidString(parsed.DisplayName) {
		t.Errorf("DisplayName %q is not valid UTF-8", parsed.DisplayName)
	}
	if parsed.DisplayName != strings.Repeat("a", footerDisplayLen-1) {
		t.Errorf("DisplayName = %q, want the split rune dropped", parsed.DisplayName)
	}
}

func TestParseFooterRejects(t *testing.T) {
	good := (&Footer{Timestamp: time.Unix(1, 0), Version: "1"}).Pack()

	badMagic := append([]byte(nil), good...)
	copy(badMagic[footerMagicOff:], "XXXXX     ")

	badTimestamp := append([]byte(nil), good...)
	copy(badTimestamp[footerTimestampOff:], "not-a-num ")

	testCases := []struct {
		name string
		data []byte
	}{
		{"short buffer", good[:FooterSize-1]},
		{"bad magic", badMagic},
		{"bad timestamp", badTimestamp},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFooter(tc.data)
			if !errors.Is(err, npkerrors.ErrCorruptContainer) {
				t.Errorf("ParseFooter() error = %v, want ErrCorruptContainer", err)
			}
		})
	}
}
