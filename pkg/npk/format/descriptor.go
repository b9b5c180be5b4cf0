package format

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nasforge/npk/pkg/utils/shellparse"
)

// Descriptor conf schema keys.
const (
	KeyName           = "NAME"
	KeyDisplayName    = "DISPLAY_NAME"
	KeyVersion        = "VERSION"
	KeySummary        = "SUMMARY"
	KeyAuthor         = "AUTHOR"
	KeyLicense        = "LICENSE"
	KeyServiceProgram = "SERVICE_PROGRAM"
	KeyServicePort    = "SERVICE_PORT"
	KeyServiceArgs    = "SERVICE_ARGS"
	KeyRunAsUser      = "RUN_AS_USER"
	KeyBootOrder      = "BOOT_ORDER_NUMBER"
	KeyWebUIPath      = "WEBUI_PATH"
	KeyWebPort        = "WEB_PORT"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Descriptor is the metadata record needed to build and register a package.
// It is created once, either from caller input or from foreign package
// metadata, and treated as immutable once assembly starts.
type Descriptor struct {
	Name        string // identifier: alphanumeric, dash, underscore
	DisplayName string
	Version     string
	Summary     string
	Author      string
	License     string

	// Service fields; ServiceProgram is the entry-point path relative to
	// the install directory and implies the package runs a service.
	ServiceProgram string
	ServicePort    int
	ServiceArgs    string
	RunAsUser      string

	BootOrder int

	// Web UI fields
	WebUIPath string
	WebPort   int
}

// Service reports whether the package declares a long-running service.
func (d *Descriptor) Service() bool {
	return d.ServiceProgram != ""
}

// Validate checks the descriptor invariants before assembly.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor: %s is required", KeyName)
	}
	if !nameRe.MatchString(d.Name) {
		return fmt.Errorf("descriptor: invalid name %q: only alphanumerics, dash and underscore allowed", d.Name)
	}
	if d.ServicePort < 0 || d.ServicePort > 65535 {
		return fmt.Errorf("descriptor: invalid service port %d", d.ServicePort)
	}
	if d.WebPort < 0 || d.WebPort > 65535 {
		return fmt.Errorf("descriptor: invalid web port %d", d.WebPort)
	}
	if (d.ServicePort != 0 || d.ServiceArgs != "" || d.RunAsUser != "") && d.ServiceProgram == "" {
		return fmt.Errorf("descriptor: service fields set but %s is empty", KeyServiceProgram)
	}
	if d.ServiceArgs != "" {
		// A SERVICE_ARGS value the service manager cannot split at install
		// time must fail at assembly time instead.
		if _, err := shellparse.Split(d.ServiceArgs); err != nil {
			return fmt.Errorf("descriptor: invalid %s: %w", KeyServiceArgs, err)
		}
	}
	return nil
}

// MarshalConf serializes the descriptor into the recognized key/value
// schema. Optional fields that are unset produce no line at all, never an
// empty value, so the installer runtime can apply host defaults.
func (d *Descriptor) MarshalConf() []byte {
	var buf bytes.Buffer

	put := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&buf, "%s=%q\n", key, value)
	}
	putInt := func(key string, value int) {
		if value == 0 {
			return
		}
		fmt.Fprintf(&buf, "%s=%q\n", key, strconv.Itoa(value))
	}

	put(KeyName, d.Name)
	put(KeyDisplayName, d.DisplayName)
	put(KeyVersion, d.Version)
	put(KeySummary, d.Summary)
	put(KeyAuthor, d.Author)
	put(KeyLicense, d.License)
	put(KeyServiceProgram, d.ServiceProgram)
	putInt(KeyServicePort, d.ServicePort)
	put(KeyServiceArgs, d.ServiceArgs)
	put(KeyRunAsUser, d.RunAsUser)
	putInt(KeyBootOrder, d.BootOrder)
	put(KeyWebUIPath, d.WebUIPath)
	putInt(KeyWebPort, d.WebPort)

	return buf.Bytes()
}

// ParseConf parses a serialized conf back into a Descriptor. Keys outside
// the descriptor schema (such as DATA_LENGTH) are returned in extras.
func ParseConf(data []byte) (*Descriptor, map[string]string, error) {
	d := &Descriptor{}
	extras := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, nil, fmt.Errorf("conf: malformed line %q", line)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		switch key {
		case KeyName:
			d.Name = value
		case KeyDisplayName:
			d.DisplayName = value
		case KeyVersion:
			d.Version = value
		case KeySummary:
			d.Summary = value
		case KeyAuthor:
			d.Author = value
		case KeyLicense:
			d.License = value
		case KeyServiceProgram:
			d.ServiceProgram = value
		case KeyServicePort:
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("conf: invalid %s %q", KeyServicePort, value)
			}
			d.ServicePort = port
		case KeyServiceArgs:
			d.ServiceArgs = value
		case KeyRunAsUser:
			d.RunAsUser = value
		case KeyBootOrder:
			order, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("conf: invalid %s %q", KeyBootOrder, value)
			}
			d.BootOrder = order
		case KeyWebUIPath:
			d.WebUIPath = value
		case KeyWebPort:
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("conf: invalid %s %q", KeyWebPort, value)
			}
			d.WebPort = port
		default:
			extras[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("conf: %w", err)
	}

	return d, extras, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
