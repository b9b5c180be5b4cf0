package format

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

// Footer is the fixed 100-byte summary record at the end of every container.
// All fields are left-justified and space-padded; the two reserved regions
// are blank in NPK/1.
type Footer struct {
	Timestamp   time.Time // build timestamp, second resolution
	DisplayName string
	Version     string
}

// Pack serializes the footer to its fixed 100-byte form.
func (f *Footer) Pack() []byte {
	buf := bytes.Repeat([]byte{' '}, FooterSize)

	putField(buf, footerTimestampOff, footerTimestampLen, strconv.FormatInt(f.Timestamp.Unix(), 10))
	putField(buf, footerDisplayOff, footerDisplayLen, f.DisplayName)
	putField(buf, footerVersionOff, footerVersionLen, f.Version)
	putField(buf, footerMagicOff, footerMagicLen, FormatName)

	return buf
}

// ParseFooter deserializes and validates a footer record.
func ParseFooter(data []byte) (*Footer, error) {
	if len(data) != FooterSize {
		return nil, fmt.Errorf("%w: footer is %d bytes, want %d", npkerrors.ErrCorruptContainer, len(data), FooterSize)
	}

	if getField(data, footerMagicOff, footerMagicLen) != FormatName {
		return nil, fmt.Errorf("%w: bad magic tag %q", npkerrors.ErrCorruptContainer,
			getField(data, footerMagicOff, footerMagicLen))
	}

	tsField := getField(data, footerTimestampOff, footerTimestampLen)
	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp field %q", npkerrors.ErrCorruptContainer, tsField)
	}

	return &Footer{
		Timestamp:   time.Unix(ts, 0).UTC(),
		DisplayName: getField(data, footerDisplayOff, footerDisplayLen),
		Version:     getField(data, footerVersionOff, footerVersionLen),
	}, nil
}

// putField writes a left-justified field, truncating on a rune boundary if
// the value does not fit its reserved width. The field must stay valid UTF-8
// after truncation.
func putField(buf []byte, off, width int, value string) {
	if len(value) > width {
		value = value[:width]
		for len(value) > 0 && !utf8.ValidString(value) {
			value = value[:len(value)-1]
		}
	}
	copy(buf[off:off+width], value)
}

func getField(buf []byte, off, width int) string {
	return strings.TrimRight(string(buf[off:off+width]), " ")
}
