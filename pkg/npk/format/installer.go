package format

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nasforge/npk/internal/registry"
	"github.com/nasforge/npk/internal/stage"
	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

// InstallOptions configure an Installer.
type InstallOptions struct {
	// InstallRoot is the directory under which package trees are
	// installed; defaults to DefaultInstallRoot.
	InstallRoot string

	// RegistryRoot holds the host package registry; defaults to
	// DefaultRegistryRoot.
	RegistryRoot string
}

// Installer performs the target-host half of the pipeline: extract the
// container's embedded archives, run the lifecycle hooks, copy the payload
// into place and register the install. Registration happens strictly after
// every extraction and copy step succeeds; a failed install leaves any
// previous installation of the same package untouched.
type Installer struct {
	root   string
	reg    *registry.Registry
	logger hclog.Logger
}

// NewInstaller creates an Installer.
func NewInstaller(opts InstallOptions, logger hclog.Logger) *Installer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.InstallRoot == "" {
		opts.InstallRoot = DefaultInstallRoot
	}
	if opts.RegistryRoot == "" {
		opts.RegistryRoot = DefaultRegistryRoot
	}
	return &Installer{
		root:   opts.InstallRoot,
		reg:    registry.New(opts.RegistryRoot, logger.Named("registry")),
		logger: logger,
	}
}

// Registry exposes the host package registry.
func (i *Installer) Registry() *registry.Registry {
	return i.reg
}

// Install extracts and registers the container at containerPath. A
// successful run is idempotent: re-installing overwrites the prior install
// directory and registry entry.
func (i *Installer) Install(containerPath string) (*registry.Entry, error) {
	r := NewReaderWithLogger(containerPath, i.logger.Named("reader"))
	defer r.Close()

	desc, err := r.Descriptor()
	if err != nil {
		return nil, npkerrors.Install("read container", err)
	}
	layout, _ := r.Layout()
	i.logger.Info("📦 installing package",
		"package", desc.Name, "version", desc.Version, "data_bytes", layout.DataLen)

	ws, err := stage.New("npk-install", i.logger)
	if err != nil {
		return nil, npkerrors.Install("workspace", err)
	}
	defer ws.Cleanup()

	controlDir, err := ws.Dir("control")
	if err != nil {
		return nil, npkerrors.Install("workspace", err)
	}
	if err := r.ExtractControl(controlDir); err != nil {
		return nil, npkerrors.Install("extract control", err)
	}

	dataDir, err := ws.Dir("data")
	if err != nil {
		return nil, npkerrors.Install("workspace", err)
	}
	if err := r.ExtractData(dataDir); err != nil {
		return nil, npkerrors.Install("extract data", err)
	}

	hooksDir := filepath.Join(controlDir, HooksDirName)
	if err := i.runHook(hooksDir, "pre_install", dataDir); err != nil {
		return nil, err
	}

	installPath := filepath.Join(i.root, desc.Name)
	if err := i.placePayload(dataDir, controlDir, installPath); err != nil {
		return nil, err
	}

	entry := entryFromDescriptor(desc, installPath)
	if err := i.reg.Write(entry); err != nil {
		return nil, npkerrors.Install("register", err)
	}

	if err := i.runHook(hooksDir, "post_install", installPath); err != nil {
		return nil, err
	}

	i.logger.Info("✅ package installed", "package", desc.Name, "path", installPath)
	return entry, nil
}

// placePayload copies the staged payload into the install root. The copy
// lands in a sibling temp directory first, so a copy failure never disturbs
// a prior installation; only the final swap replaces it.
func (i *Installer) placePayload(dataDir, controlDir, installPath string) error {
	if err := os.MkdirAll(i.root, DirPerms); err != nil {
		return npkerrors.Install("copy payload", fmt.Errorf("%w: %v", npkerrors.ErrCopyFailed, err))
	}

	staging := filepath.Join(i.root, fmt.Sprintf(".%s.installing.%d", filepath.Base(installPath), os.Getpid()))
	defer os.RemoveAll(staging)

	if err := copyTree(dataDir, staging); err != nil {
		return npkerrors.Install("copy payload", fmt.Errorf("%w: %v", npkerrors.ErrCopyFailed, err))
	}

	// Keep the descriptor and hooks alongside the install so removal can
	// run its hooks without the original container.
	metaDir := filepath.Join(staging, InstalledMetaDir)
	if err := copyTree(controlDir, metaDir); err != nil {
		return npkerrors.Install("copy payload", fmt.Errorf("%w: %v", npkerrors.ErrCopyFailed, err))
	}

	if err := os.RemoveAll(installPath); err != nil {
		return npkerrors.Install("copy payload", fmt.Errorf("%w: %v", npkerrors.ErrCopyFailed, err))
	}
	if err := os.Rename(staging, installPath); err != nil {
		return npkerrors.Install("copy payload", fmt.Errorf("%w: %v", npkerrors.ErrCopyFailed, err))
	}
	return nil
}

// Remove uninstalls the named package: removal hooks, install tree, then
// the registry record. Removing an unknown package fails with
// ErrNotInstalled.
func (i *Installer) Remove(name string) error {
	entry, err := i.reg.Read(name)
	if err != nil {
		if os.IsNotExist(err) {
			return npkerrors.Install("remove", fmt.Errorf("%w: %s", npkerrors.ErrNotInstalled, name))
		}
		return npkerrors.Install("remove", err)
	}

	// Hooks must outlive the install tree they ship in.
	ws, err := stage.New("npk-remove", i.logger)
	if err != nil {
		return npkerrors.Install("workspace", err)
	}
	defer ws.Cleanup()

	hooksDir := ""
	installedHooks := filepath.Join(entry.InstallPath, InstalledMetaDir, HooksDirName)
	if _, err := os.Stat(installedHooks); err == nil {
		hooksDir, err = ws.Dir(HooksDirName)
		if err != nil {
			return npkerrors.Install("workspace", err)
		}
		if err := copyTree(installedHooks, hooksDir); err != nil {
			return npkerrors.Install("stage hooks", err)
		}
	}

	if err := i.runHook(hooksDir, "pre_remove", entry.InstallPath); err != nil {
		return err
	}
	if err := i.runHook(hooksDir, "main_remove", entry.InstallPath); err != nil {
		return err
	}

	if err := os.RemoveAll(entry.InstallPath); err != nil {
		return npkerrors.Install("remove tree", err)
	}

	if err := i.runHook(hooksDir, "post_remove", i.root); err != nil {
		return err
	}

	if err := i.reg.Delete(name); err != nil {
		return npkerrors.Install("deregister", err)
	}

	i.logger.Info("🗑 package removed", "package", name)
	return nil
}

// runHook invokes one lifecycle hook with no arguments. A missing hook is a
// no-op. A hook that runs and exits non-zero is advisory (logged, not
// fatal); a hook that cannot be started at all is a hard failure.
func (i *Installer) runHook(hooksDir, name, workDir string) error {
	if hooksDir == "" {
		return nil
	}
	script := filepath.Join(hooksDir, name)
	if _, err := os.Stat(script); os.IsNotExist(err) {
		i.logger.Debug("hook not present", "hook", name)
		return nil
	}

	i.logger.Debug("running hook", "hook", name, "script", script)
	cmd := exec.Command("/bin/sh", script)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "NPK_STAGE_DIR="+workDir)

	output, err := cmd.CombinedOutput()
	if out := strings.TrimSpace(string(output)); out != "" {
		i.logger.Debug("hook output", "hook", name, "output", out)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			i.logger.Warn("⚠️ hook exited non-zero", "hook", name, "code", exitErr.ExitCode())
			return nil
		}
		return npkerrors.Install("hook "+name, fmt.Errorf("%w: %v", npkerrors.ErrHookFailed, err))
	}
	return nil
}

// entryFromDescriptor maps descriptor fields onto a registry record. Fields
// the descriptor does not carry stay zero and are omitted from the record.
func entryFromDescriptor(d *Descriptor, installPath string) *registry.Entry {
	entry := &registry.Entry{
		Name:        d.Name,
		InstallPath: installPath,
		Enabled:     true,
		DisplayName: d.DisplayName,
		Version:     d.Version,
		RunAsUser:   d.RunAsUser,
		BootOrder:   d.BootOrder,
		WebUI:       d.WebUIPath,
		WebPort:     d.WebPort,
	}
	if d.Service() {
		entry.Shell = filepath.Join(installPath, d.ServiceProgram)
		entry.ShellArgs = d.ServiceArgs
		entry.ServicePort = d.ServicePort
	}
	return entry
}
