package permissions

import "testing"

func TestParseOctalString(t *testing.T) {
	testCases := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{in: "755", want: 0o755},
		{in: "0755", want: 0o755},
		{in: "0o644", want: 0o644},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "9xx", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseOctalString(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseOctalString(%q) = %o, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOctalString(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseOctalString(%q) = %o, want %o", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatOctal(t *testing.T) {
	if got := FormatOctal(0o755); got != "0755" {
		t.Errorf("FormatOctal(0o755) = %q", got)
	}
}

func TestIsExecutable(t *testing.T) {
	testCases := []struct {
		perm uint16
		want bool
	}{
		{0o755, true},
		{0o700, true},
		{0o655, true},
		{0o011, true},
		{0o644, false},
		{0o600, false},
	}

	for _, tc := range testCases {
		if got := IsExecutable(tc.perm); got != tc.want {
			t.Errorf("IsExecutable(%o) = %v, want %v", tc.perm, got, tc.want)
		}
	}
}
