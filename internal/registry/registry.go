// Package registry maintains the host package registry: one key/value conf
// record per installed package under a common root directory. Records are
// only ever written after extraction and payload copy succeed, and a
// re-install simply overwrites the previous record.
package registry

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nasforge/npk/pkg/utils/shellparse"
)

// Record keys. A key is written only when the descriptor carried the
// corresponding field; absent means "apply host default", never "".
const (
	keyName        = "NAME"
	keyInstallPath = "INSTALL_PATH"
	keyEnabled     = "ENABLED"
	keyDisplayName = "DISPLAY_NAME"
	keyVersion     = "VERSION"
	keyShell       = "SHELL"
	keyShellArgs   = "SHELL_ARGS"
	keyServicePort = "SERVICE_PORT"
	keyRunAsUser   = "RUN_AS_USER"
	keyBootOrder   = "BOOT_ORDER_NUMBER"
	keyWebUI       = "WEBUI"
	keyWebPort     = "WEB_PORT"
)

// Entry is one registered install.
type Entry struct {
	Name        string
	InstallPath string
	Enabled     bool
	DisplayName string
	Version     string

	// Shell is the absolute service entry-point path; ShellArgs its raw
	// argument string as carried by the descriptor.
	Shell     string
	ShellArgs string

	ServicePort int
	RunAsUser   string
	BootOrder   int

	WebUI   string
	WebPort int
}

// ShellArgv splits the raw service argument string into an argv vector.
func (e *Entry) ShellArgv() ([]string, error) {
	return shellparse.Split(e.ShellArgs)
}

// ServiceCommand renders the full service invocation for display. Non-service
// entries render as the empty string.
func (e *Entry) ServiceCommand() (string, error) {
	if e.Shell == "" {
		return "", nil
	}
	argv, err := e.ShellArgv()
	if err != nil {
		return "", fmt.Errorf("registry: %s record: %w", e.Name, err)
	}
	return shellparse.Join(append([]string{e.Shell}, argv...)), nil
}

// Registry is a directory of per-package conf records.
type Registry struct {
	root   string
	logger hclog.Logger
}

// New creates a Registry rooted at dir.
func New(dir string, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{root: dir, logger: logger}
}

// Root returns the registry root directory.
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) recordPath(name string) string {
	return filepath.Join(r.root, name+".conf")
}

// Write registers (or overwrites) the record for entry.
func (r *Registry) Write(entry *Entry) error {
	if entry.Name == "" {
		return fmt.Errorf("registry: entry has no name")
	}
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	var buf bytes.Buffer
	put := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&buf, "%s=%q\n", key, value)
	}

	put(keyName, entry.Name)
	put(keyInstallPath, entry.InstallPath)
	if entry.Enabled {
		put(keyEnabled, "TRUE")
	} else {
		put(keyEnabled, "FALSE")
	}
	put(keyDisplayName, entry.DisplayName)
	put(keyVersion, entry.Version)
	put(keyShell, entry.Shell)
	put(keyShellArgs, entry.ShellArgs)
	if entry.ServicePort != 0 {
		put(keyServicePort, strconv.Itoa(entry.ServicePort))
	}
	put(keyRunAsUser, entry.RunAsUser)
	if entry.BootOrder != 0 {
		put(keyBootOrder, strconv.Itoa(entry.BootOrder))
	}
	put(keyWebUI, entry.WebUI)
	if entry.WebPort != 0 {
		put(keyWebPort, strconv.Itoa(entry.WebPort))
	}

	path := r.recordPath(entry.Name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", path, err)
	}

	r.logger.Debug("registry record written", "name", entry.Name, "path", path)
	return nil
}

// Read loads the record for name. os.ErrNotExist is returned untouched so
// callers can distinguish "not installed".
func (r *Registry) Read(name string) (*Entry, error) {
	data, err := os.ReadFile(r.recordPath(name))
	if err != nil {
		return nil, err
	}

	entry := &Entry{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = unquote(strings.TrimSpace(value))

		switch strings.TrimSpace(key) {
		case keyName:
			entry.Name = value
		case keyInstallPath:
			entry.InstallPath = value
		case keyEnabled:
			entry.Enabled = strings.EqualFold(value, "TRUE")
		case keyDisplayName:
			entry.DisplayName = value
		case keyVersion:
			entry.Version = value
		case keyShell:
			entry.Shell = value
		case keyShellArgs:
			entry.ShellArgs = value
		case keyServicePort:
			entry.ServicePort, _ = strconv.Atoi(value)
		case keyRunAsUser:
			entry.RunAsUser = value
		case keyBootOrder:
			entry.BootOrder, _ = strconv.Atoi(value)
		case keyWebUI:
			entry.WebUI = value
		case keyWebPort:
			entry.WebPort, _ = strconv.Atoi(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	return entry, nil
}

// Has reports whether a record exists for name.
func (r *Registry) Has(name string) bool {
	_, err := os.Stat(r.recordPath(name))
	return err == nil
}

// Delete removes the record for name. Deleting a missing record is not an
// error; removal must be idempotent.
func (r *Registry) Delete(name string) error {
	err := os.Remove(r.recordPath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}

// List returns the names of all registered packages, sorted.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".conf"))
	}
	sort.Strings(names)
	return names, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
