package operations_test

import (
	"testing"

	"github.com/nasforge/npk/pkg/npk/operations"
	_ "github.com/nasforge/npk/pkg/npk/operations/compress" // register codecs
)

func TestForExtension(t *testing.T) {
	testCases := []struct {
		ext     string
		wantID  uint8
		wantNil bool
		wantErr bool
	}{
		{ext: "", wantNil: true},
		{ext: ".gz", wantID: operations.OP_GZIP},
		{ext: ".bz2", wantID: operations.OP_BZIP2},
		{ext: ".xz", wantID: operations.OP_XZ},
		{ext: ".zst", wantID: operations.OP_ZSTD},
		{ext: ".lzma", wantErr: true},
		{ext: ".rar", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run("ext_"+tc.ext, func(t *testing.T) {
			op, err := operations.ForExtension(tc.ext)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ForExtension(%q) = %v, want error", tc.ext, op)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForExtension(%q) error: %v", tc.ext, err)
			}
			if tc.wantNil {
				if op != nil {
					t.Errorf("ForExtension(%q) = %v, want nil (no codec needed)", tc.ext, op)
				}
				return
			}
			if op == nil || op.ID() != tc.wantID {
				t.Errorf("ForExtension(%q) = %v, want ID 0x%02x", tc.ext, op, tc.wantID)
			}
		})
	}
}

func TestGetName(t *testing.T) {
	testCases := []struct {
		id   uint8
		name string
	}{
		{operations.OP_NONE, "NONE"},
		{operations.OP_GZIP, "GZIP"},
		{operations.OP_BZIP2, "BZIP2"},
		{operations.OP_XZ, "XZ"},
		{operations.OP_ZSTD, "ZSTD"},
		{0xEE, "UNKNOWN_ee"},
	}

	for _, tc := range testCases {
		if got := operations.GetName(tc.id); got != tc.name {
			t.Errorf("GetName(0x%02x) = %q, want %q", tc.id, got, tc.name)
		}
	}
}

func TestGetUnknownOperation(t *testing.T) {
	if _, err := operations.Get(0xEE); err == nil {
		t.Error("Get(0xEE) = nil error, want unknown operation error")
	}
}
