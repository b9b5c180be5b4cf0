package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/nasforge/npk/pkg/logging"
	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/format"
)

const version = "0.1.0"

const exitUsage = 2

var (
	installRoot  string
	registryRoot string
	logLevel     string
	rootCmd      *cobra.Command
)

func newLogger() hclog.Logger {
	level, jsonFormat, source := logging.Resolve(logLevel, "NPK_INSTALLER_LOG_LEVEL", "info")
	logger := logging.NewLogger("npk-installer", level, jsonFormat)
	logger.Debug("log level resolved", "level", level, "source", source)
	return logger
}

func newInstaller(logger hclog.Logger) *format.Installer {
	return format.NewInstaller(format.InstallOptions{
		InstallRoot:  installRoot,
		RegistryRoot: registryRoot,
	}, logger)
}

func fail(logger hclog.Logger, err error) {
	logger.Error("❌ operation failed", "error", err)
	os.Exit(npkerrors.ExitCode(err))
}

func init() {
	rootCmd = &cobra.Command{
		Use:     "npk-installer",
		Short:   "Install NPK/1 containers",
		Long:    `Install, remove and inspect NPK/1 self-installing containers`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&installRoot, "root", "", "Install root (default "+format.DefaultInstallRoot+")")
	rootCmd.PersistentFlags().StringVar(&registryRoot, "registry", "", "Registry root (default "+format.DefaultRegistryRoot+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		installCmd(),
		removeCmd(),
		infoCmd(),
		verifyCmd(),
		listCmd(),
	)
}

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <container>",
		Short: "Install a container",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			entry, err := newInstaller(logger).Install(args[0])
			if err != nil {
				fail(logger, err)
			}
			fmt.Printf("installed %s %s at %s\n", entry.Name, entry.Version, entry.InstallPath)
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an installed package",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			if err := newInstaller(logger).Remove(args[0]); err != nil {
				fail(logger, err)
			}
			fmt.Printf("removed %s\n", args[0])
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <container>",
		Short: "Show container metadata",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			r := format.NewReaderWithLogger(args[0], logger)
			defer r.Close()

			desc, err := r.Descriptor()
			if err != nil {
				fail(logger, npkerrors.Install("read container", err))
			}
			layout, _ := r.Layout()
			footer, _ := r.Footer()

			fmt.Printf("Name:         %s\n", desc.Name)
			if desc.DisplayName != "" {
				fmt.Printf("Display name: %s\n", desc.DisplayName)
			}
			fmt.Printf("Version:      %s\n", desc.Version)
			if desc.Summary != "" {
				fmt.Printf("Summary:      %s\n", desc.Summary)
			}
			if desc.Author != "" {
				fmt.Printf("Author:       %s\n", desc.Author)
			}
			if desc.Service() {
				fmt.Printf("Service:      %s\n", desc.ServiceProgram)
			}
			fmt.Printf("Built:        %s\n", footer.Timestamp.UTC().Format(time.RFC3339))
			fmt.Printf("Layout:       preamble %d, control %d, data %d, total %d\n",
				layout.PreambleLen, format.ControlBlockSize, layout.DataLen, layout.FileSize)
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <container>",
		Short: "Verify container integrity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			r := format.NewReaderWithLogger(args[0], logger)
			defer r.Close()

			if err := r.Verify(); err != nil {
				fail(logger, npkerrors.Install("verify", err))
			}
			fmt.Printf("%s: OK\n", args[0])
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			reg := newInstaller(logger).Registry()

			names, err := reg.List()
			if err != nil {
				fail(logger, npkerrors.Install("list", err))
			}
			for _, name := range names {
				entry, err := reg.Read(name)
				if err != nil {
					fail(logger, npkerrors.Install("list", err))
				}
				command, err := entry.ServiceCommand()
				if err != nil {
					fail(logger, npkerrors.Install("list", err))
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", entry.Name, entry.Version, entry.InstallPath, command)
			}
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}
