package format

// Core format constants. These define the NPK/1 container byte layout and
// never change; defaults and tunables live in defaults.go.

const (
	// FormatName is the magic tag recorded in the container footer.
	FormatName = "NPK/1"

	// ControlBlockSize is the fixed size of the control block. The
	// compressed control archive is zero-padded up to this size and must
	// never exceed it.
	ControlBlockSize = 20480

	// FooterSize is the fixed size of the container footer.
	FooterSize = 100

	// LengthFieldWidth is the width in bytes of the self-referential
	// preamble length field, a left-zero-padded decimal.
	LengthFieldWidth = 10
)

// Preamble header. The first two lines are byte-for-byte constant so that
// the length field always sits at the same offset in every container.
const (
	preambleShebang = "#!/bin/sh\n"
	preambleBanner  = "# NPK/1 self-installing package. Do not edit: byte offsets are load-bearing.\n"
	preambleLenKey  = "NPK_PREAMBLE_LEN="

	// PreambleLenOffset is the fixed byte offset of the preamble length
	// field, counted from the start of the container.
	PreambleLenOffset = len(preambleShebang) + len(preambleBanner) + len(preambleLenKey)
)

// Footer field layout: left-justified, space-padded fields.
const (
	footerReservedAOff = 0  // reserved (10)
	footerReservedBOff = 10 // reserved (40)
	footerTimestampOff = 50 // unix timestamp, decimal (10)
	footerDisplayOff   = 60 // display name (20)
	footerVersionOff   = 80 // version (10)
	footerMagicOff     = 90 // magic tag (10)

	footerTimestampLen = 10
	footerDisplayLen   = 20
	footerVersionLen   = 10
	footerMagicLen     = 10
)

// Control archive member names.
const (
	// ConfName is the descriptor file inside the control archive.
	ConfName = "npk.conf"

	// HooksDirName is the directory of lifecycle hook scripts inside the
	// control archive.
	HooksDirName = "hooks"
)

// KeyDataLength is the build-written control key recording the exact byte
// length of the compressed data block. Extraction recovers the data block
// extent from this value, never by scanning.
const KeyDataLength = "DATA_LENGTH"
