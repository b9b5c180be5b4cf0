package format

import (
	"strings"
	"testing"
)

func TestDescriptorValidate(t *testing.T) {
	testCases := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "minimal valid",
			desc: Descriptor{Name: "sample"},
		},
		{
			name: "full service descriptor",
			desc: Descriptor{
				Name:           "media-server",
				DisplayName:    "Media Server",
				Version:        "2.3.1",
				ServiceProgram: "bin/mediad",
				ServicePort:    8200,
				ServiceArgs:    "--foreground",
				RunAsUser:      "media",
			},
		},
		{
			name:    "empty name",
			desc:    Descriptor{},
			wantErr: true,
		},
		{
			name:    "name with spaces",
			desc:    Descriptor{Name: "bad name"},
			wantErr: true,
		},
		{
			name:    "name with slash",
			desc:    Descriptor{Name: "bad/name"},
			wantErr: true,
		},
		{
			name:    "service port without program",
			desc:    Descriptor{Name: "sample", ServicePort: 8080},
			wantErr: true,
		},
		{
			name:    "run-as-user without program",
			desc:    Descriptor{Name: "sample", RunAsUser: "nobody"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			desc:    Descriptor{Name: "sample", ServiceProgram: "bin/d", ServicePort: 70000},
			wantErr: true,
		},
		{
			name:    "unsplittable service args",
			desc:    Descriptor{Name: "sample", ServiceProgram: "bin/d", ServiceArgs: `--half "open`},
			wantErr: true,
		},
		{
			name: "quoted service args",
			desc: Descriptor{Name: "sample", ServiceProgram: "bin/d", ServiceArgs: `--config "/etc/a b.conf"`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.desc.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestDescriptorConfRoundTrip(t *testing.T) {
	orig := Descriptor{
		Name:           "media-server",
		DisplayName:    "Media Server",
		Version:        "2.3.1",
		Summary:        "Streams media, with \"quotes\" and = signs",
		Author:         "NAS Forge",
		License:        "MIT",
		ServiceProgram: "bin/mediad",
		ServicePort:    8200,
		ServiceArgs:    `--config "/etc/media d.conf" -v`,
		RunAsUser:      "media",
		BootOrder:      50,
		WebUIPath:      "/webui/",
		WebPort:        8201,
	}

	parsed, extras, err := ParseConf(orig.MarshalConf())
	if err != nil {
		t.Fatalf("ParseConf() error: %v", err)
	}
	if *parsed != orig {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *parsed, orig)
	}
	if len(extras) != 0 {
		t.Errorf("unexpected extras: %v", extras)
	}
}

func TestConfOmitsUnsetServiceKeys(t *testing.T) {
	desc := Descriptor{Name: "plain-tool", Version: "1.0"}
	conf := string(desc.MarshalConf())

	for _, key := range []string{KeyServiceProgram, KeyServicePort, KeyServiceArgs, KeyRunAsUser, KeyBootOrder, KeyWebUIPath, KeyWebPort} {
		if strings.Contains(conf, key) {
			t.Errorf("conf contains %s for a non-service package:\n%s", key, conf)
		}
	}
}

func TestParseConfExtras(t *testing.T) {
	data := []byte("NAME=\"sample\"\nDATA_LENGTH=\"4096\"\n\n# comment\n")

	desc, extras, err := ParseConf(data)
	if err != nil {
		t.Fatalf("ParseConf() error: %v", err)
	}
	if desc.Name != "sample" {
		t.Errorf("Name = %q, want %q", desc.Name, "sample")
	}
	if extras["DATA_LENGTH"] != "4096" {
		t.Errorf("extras[DATA_LENGTH] = %q, want %q", extras["DATA_LENGTH"], "4096")
	}
}

func TestParseConfMalformedLine(t *testing.T) {
	if _, _, err := ParseConf([]byte("NAME no equals sign\n")); err == nil {
		t.Error("ParseConf() = nil, want error for malformed line")
	}
}
