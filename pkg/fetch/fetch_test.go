package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"http://mirror.example/pool/sample.deb", true},
		{"https://mirror.example/sample.rpm", true},
		{"/var/tmp/sample.deb", false},
		{"sample.deb", false},
		{"ftp://mirror.example/sample.deb", false},
	}

	for _, tc := range testCases {
		assert.Equalf(t, tc.want, IsURL(tc.in), "IsURL(%q)", tc.in)
	}
}

func TestArchiveDownloads(t *testing.T) {
	payload := []byte("fake archive bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := t.TempDir()
	path, err := Archive(context.Background(), srv.URL+"/pool/sample.deb", dest, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dest, "sample.deb"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestArchiveFollowsRedirect(t *testing.T) {
	payload := []byte("redirected archive")
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/real.rpm", http.StatusFound)
	}))
	defer srv.Close()

	path, err := Archive(context.Background(), srv.URL+"/moved.rpm", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "real.rpm", filepath.Base(path))
}

func TestArchiveFailsHard(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer empty.Close()

	t.Run("non-2xx status", func(t *testing.T) {
		dest := t.TempDir()
		_, err := Archive(context.Background(), notFound.URL+"/missing.deb", dest, nil)
		assert.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dest, "missing.deb"))
	})

	t.Run("empty body", func(t *testing.T) {
		dest := t.TempDir()
		_, err := Archive(context.Background(), empty.URL+"/empty.deb", dest, nil)
		assert.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dest, "empty.deb"))
	})
}
