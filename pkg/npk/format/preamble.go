package format

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

// The preamble is a POSIX sh self-extractor rendered from this template.
// Two values are unknown at template time: the preamble's own total length L
// and the data block length D. D is substituted during rendering; L is
// rendered as a fixed-width all-zero placeholder, then the measured length is
// written back into the same field. The substitution is same-width, so one
// pass suffices, but renderPreamble still verifies the length afterwards.
//
// Leading zeros would make the length read as octal inside $(( )), so the
// script normalizes through expr, which parses decimal.
var preambleTemplate = template.Must(template.New("preamble").Parse(preambleShebang + preambleBanner +
	preambleLenKey + lenPlaceholder + "\n" +
	`NPK_CONTROL_LEN={{.ControlLen}}
NPK_DATA_LEN={{.DataLen}}
NPK_NAME={{.Name}}
NPK_DISPLAY_NAME="{{.DisplayName}}"
offset=$(expr "$NPK_PREAMBLE_LEN" + 0)
doff=$(expr "$offset" + "$NPK_CONTROL_LEN")
workdir="${TMPDIR:-/tmp}/npk_${NPK_NAME}.$$"
mkdir -p "$workdir/control" "$workdir/data" || exit 1
trap 'rm -rf "$workdir"' EXIT INT TERM
echo "Extracting $NPK_DISPLAY_NAME..."
dd if="$0" bs=1 skip="$offset" count="$NPK_CONTROL_LEN" 2>/dev/null | tar -xzf - -C "$workdir/control" || exit 1
dd if="$0" bs=1 skip="$doff" count="$NPK_DATA_LEN" 2>/dev/null | tar -xzf - -C "$workdir/data" || exit 1
for hook in pre_install install post_install; do
    script="$workdir/control/hooks/$hook"
    [ -f "$script" ] || continue
    NPK_STAGE_DIR="$workdir/data" sh "$script"
    status=$?
    if [ "$hook" = install ] && [ $status -ne 0 ]; then
        echo "install failed with status $status" >&2
        exit $status
    fi
done
exit 0
`))

const lenPlaceholder = "0000000000" // LengthFieldWidth zeros

type preambleData struct {
	ControlLen  int
	DataLen     int64
	Name        string
	DisplayName string
}

// renderPreamble renders the container preamble for the given descriptor and
// data block length, resolving the self-referential length field.
func renderPreamble(d *Descriptor, dataLen int64) ([]byte, error) {
	display := d.DisplayName
	if display == "" {
		display = d.Name
	}

	var buf bytes.Buffer
	err := preambleTemplate.Execute(&buf, preambleData{
		ControlLen:  ControlBlockSize,
		DataLen:     dataLen,
		Name:        d.Name,
		DisplayName: shEscape(display),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering preamble: %w", err)
	}

	rendered := buf.Bytes()
	total := len(rendered)

	if len(strconv.Itoa(total)) > LengthFieldWidth {
		return nil, fmt.Errorf("%w: preamble is %d bytes", npkerrors.ErrPreambleTooLarge, total)
	}
	field := fmt.Sprintf("%0*d", LengthFieldWidth, total)

	// The placeholder must still be in place at the fixed offset; anything
	// else means the header constants and the template have drifted apart.
	end := PreambleLenOffset + LengthFieldWidth
	if end > total || string(rendered[PreambleLenOffset:end]) != lenPlaceholder {
		return nil, fmt.Errorf("preamble length placeholder not found at offset %d", PreambleLenOffset)
	}
	copy(rendered[PreambleLenOffset:end], field)

	if len(rendered) != total {
		return nil, fmt.Errorf("%w: length changed by substitution (%d != %d)",
			npkerrors.ErrPreambleTooLarge, len(rendered), total)
	}

	return rendered, nil
}

// shEscape makes a value safe inside a double-quoted sh string. The name
// field needs none of this; descriptor validation restricts it to
// [A-Za-z0-9_-]. The display name is free text, often straight from foreign
// package metadata.
func shEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "$", "\\$", "`", "\\`")
	return r.Replace(s)
}

// parsePreambleLength reads the self-reported preamble length from the fixed
// field offset. header must contain at least the preamble header bytes.
func parsePreambleLength(header []byte) (int64, error) {
	end := PreambleLenOffset + LengthFieldWidth
	if len(header) < end {
		return 0, fmt.Errorf("container shorter than preamble header (%d bytes)", len(header))
	}

	field := strings.TrimLeft(string(header[PreambleLenOffset:end]), "0")
	if field == "" {
		return 0, fmt.Errorf("preamble length field is zero")
	}

	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid preamble length field: %w", err)
	}
	return n, nil
}
