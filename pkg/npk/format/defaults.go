package format

// =================================
// File permissions defaults
// =================================
const (
	FilePerms       = 0o644 // World-readable: installed trees are shared
	ExecutablePerms = 0o755
	DirPerms        = 0o755
)

// =================================
// Path defaults
// =================================
const (
	// ContainerSuffix is the conventional container file extension.
	ContainerSuffix = ".npk"

	// DefaultInstallRoot is where installed package trees live.
	DefaultInstallRoot = "/opt/npk"

	// DefaultRegistryRoot holds the host package registry records.
	DefaultRegistryRoot = "/var/lib/npk"

	// InstalledMetaDir is the per-install metadata directory kept inside
	// the install tree (descriptor conf plus removal hooks).
	InstalledMetaDir = ".npk"
)
