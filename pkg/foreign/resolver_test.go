package foreign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

func TestDetectKind(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	testCases := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "ar magic",
			path: write("a.bin", []byte("!<arch>\nrest")),
			want: "deb",
		},
		{
			name: "rpm magic",
			path: write("b.bin", []byte{0xed, 0xab, 0xee, 0xdb, 0x03, 0x00}),
			want: "rpm",
		},
		{
			name: "deb extension fallback",
			path: write("short.deb", []byte("x")),
			want: "deb",
		},
		{
			name: "rpm extension fallback",
			path: write("short.RPM", []byte("x")),
			want: "rpm",
		},
		{
			name:    "unrecognized",
			path:    write("c.tgz", []byte("random bytes here")),
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := detectKind(tc.path)
			if tc.wantErr {
				assert.ErrorIs(t, err, npkerrors.ErrArchiveUnreadable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestResolveDebEndToEnd(t *testing.T) {
	control := gzipBytes(t, makeTar(t, []tarEntry{
		{name: "./control", body: sampleControl, mode: 0o644},
	}))
	data := gzipBytes(t, makeTar(t, []tarEntry{
		{name: "./usr/bin/app", body: "#!/bin/sh\necho app\n", mode: 0o755},
		{name: "./usr/lib/libapp.so", body: "elf", mode: 0o755},
	}))
	deb := makeDeb(t, control, data, "control.tar.gz", "data.tar.gz")

	resolution, err := NewResolver(nil).Resolve(deb)
	require.NoError(t, err)
	defer resolution.Close()

	assert.Equal(t, "sample", resolution.Metadata.Name)
	assert.Equal(t, "2.3.1", resolution.Metadata.Version)

	require.Len(t, resolution.Candidates, 1)
	assert.Equal(t, "usr/bin/app", resolution.Candidates[0].Path)

	assert.FileExists(t, filepath.Join(resolution.Root, "usr", "bin", "app"))
}

func TestResolveCleansUpOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.deb")
	require.NoError(t, os.WriteFile(path, []byte("not really a deb"), 0o644))

	_, err := NewResolver(nil).Resolve(path)
	assert.Error(t, err)
}

func TestResolutionCloseRemovesTree(t *testing.T) {
	control := gzipBytes(t, makeTar(t, []tarEntry{
		{name: "control", body: "Package: tiny\nVersion: 1\n", mode: 0o644},
	}))
	data := gzipBytes(t, makeTar(t, []tarEntry{
		{name: "bin/tiny", body: "#!/bin/sh\n", mode: 0o755},
	}))
	deb := makeDeb(t, control, data, "control.tar.gz", "data.tar.gz")

	resolution, err := NewResolver(nil).Resolve(deb)
	require.NoError(t, err)

	root := resolution.Root
	resolution.Close()
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))
}
