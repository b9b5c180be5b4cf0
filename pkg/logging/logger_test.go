package logging

import (
	"testing"
)

func TestResolveCascade(t *testing.T) {
	testCases := []struct {
		name       string
		cli        string
		toolEnvVal string
		globalVal  string
		wantLevel  string
		wantJSON   bool
		wantSource string
	}{
		{
			name:       "cli flag wins",
			cli:        "debug",
			toolEnvVal: "trace",
			globalVal:  "error",
			wantLevel:  "debug",
			wantSource: "CLI --log-level",
		},
		{
			name:       "tool env beats global",
			toolEnvVal: "trace",
			globalVal:  "error",
			wantLevel:  "trace",
			wantSource: "NPK_BUILDER_LOG_LEVEL",
		},
		{
			name:       "global env",
			globalVal:  "warn",
			wantLevel:  "warn",
			wantSource: "NPK_LOG_LEVEL",
		},
		{
			name:       "default",
			wantLevel:  "info",
			wantSource: "default",
		},
		{
			name:      "json prefix with level",
			cli:       "json:debug",
			wantLevel: "debug",
			wantJSON:  true,
		},
		{
			name:      "bare json",
			cli:       "json",
			wantLevel: "info",
			wantJSON:  true,
		},
		{
			name:       "json via env",
			toolEnvVal: "json:trace",
			wantLevel:  "trace",
			wantJSON:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NPK_BUILDER_LOG_LEVEL", tc.toolEnvVal)
			t.Setenv("NPK_LOG_LEVEL", tc.globalVal)

			level, jsonFormat, source := Resolve(tc.cli, "NPK_BUILDER_LOG_LEVEL", "info")
			if level != tc.wantLevel {
				t.Errorf("level = %q, want %q", level, tc.wantLevel)
			}
			if jsonFormat != tc.wantJSON {
				t.Errorf("jsonFormat = %v, want %v", jsonFormat, tc.wantJSON)
			}
			if tc.wantSource != "" && source != tc.wantSource {
				t.Errorf("source = %q, want %q", source, tc.wantSource)
			}
		})
	}
}
