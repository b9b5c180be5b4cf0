package format

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lifecycle hook names, in invocation order for install and removal.
// Hooks are optional; a missing hook defaults to a no-op script.
var HookNames = []string{
	"pre_install",
	"install",
	"post_install",
	"pre_remove",
	"main_remove",
	"post_remove",
}

const defaultHookScript = "#!/bin/sh\nexit 0\n"

// LoadHooks reads the lifecycle hook scripts from dir, substituting a no-op
// script for every hook not present. dir may be empty, in which case all
// hooks are no-ops. Files in dir outside the known hook names are ignored.
func LoadHooks(dir string) (map[string][]byte, error) {
	hooks := make(map[string][]byte, len(HookNames))

	for _, name := range HookNames {
		hooks[name] = []byte(defaultHookScript)
		if dir == "" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading hook %s: %w", name, err)
		}
		hooks[name] = data
	}

	return hooks, nil
}
