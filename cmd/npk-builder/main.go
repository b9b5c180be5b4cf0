package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/nasforge/npk/internal/stage"
	"github.com/nasforge/npk/pkg/fetch"
	"github.com/nasforge/npk/pkg/foreign"
	"github.com/nasforge/npk/pkg/logging"
	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
	"github.com/nasforge/npk/pkg/npk/format"
	"github.com/nasforge/npk/pkg/utils/permissions"
)

const version = "0.1.0"

const exitUsage = 2

var (
	confPath    string
	payloadPath string
	foreignPath string
	choose      int
	outputPath  string
	hooksDir    string
	iconPath    string
	payloadMode string
	logLevel    string
	versionFlag bool
	rootCmd     *cobra.Command
)

func getBuilderTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "npk-builder",
		Short: "Assemble NPK/1 self-installing containers",
		Long:  `Assemble NPK/1 self-installing containers from a payload or a foreign deb/rpm archive`,
		Run:   buildContainer,
	}

	rootCmd.Flags().StringVarP(&confPath, "conf", "c", "", "Path to descriptor conf file")
	rootCmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Payload: executable file or staged directory")
	rootCmd.Flags().StringVarP(&foreignPath, "foreign", "f", "", "Foreign deb/rpm archive: local path or http(s) URL")
	rootCmd.Flags().IntVar(&choose, "choose", -1, "Entry-point index when the archive holds several executables")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the container (required)")
	rootCmd.Flags().StringVar(&hooksDir, "hooks-dir", "", "Directory with lifecycle hook scripts")
	rootCmd.Flags().StringVar(&iconPath, "icon", "", "Source image for the icon set")
	rootCmd.Flags().StringVar(&payloadMode, "payload-mode", "", "Octal mode for a single-file payload (default 0755)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("npk-builder %s\n", version)
		fmt.Printf("Built: %s\n", getBuilderTimestamp())
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func buildContainer(cmd *cobra.Command, args []string) {
	if versionFlag {
		fmt.Printf("npk-builder %s\n", version)
		fmt.Printf("Built: %s\n", getBuilderTimestamp())
		return
	}

	level, jsonFormat, source := logging.Resolve(logLevel, "NPK_BUILDER_LOG_LEVEL", "info")
	logger := logging.NewLogger("npk-builder", level, jsonFormat)
	logger.Debug("log level resolved", "level", level, "source", source)

	if outputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --output is required")
		os.Exit(exitUsage)
	}
	if (payloadPath == "") == (foreignPath == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --payload or --foreign is required")
		os.Exit(exitUsage)
	}

	if err := run(logger); err != nil {
		logger.Error("❌ build failed", "error", err)
		os.Exit(npkerrors.ExitCode(err))
	}
}

func run(logger hclog.Logger) error {
	desc := &format.Descriptor{}
	if confPath != "" {
		data, err := os.ReadFile(confPath)
		if err != nil {
			return npkerrors.Assembly("read conf", err)
		}
		desc, _, err = format.ParseConf(data)
		if err != nil {
			return npkerrors.Assembly("parse conf", err)
		}
	}

	payload := payloadPath
	if foreignPath != "" {
		archivePath := foreignPath
		if fetch.IsURL(foreignPath) {
			ws, err := stage.New("npk-fetch", logger)
			if err != nil {
				return npkerrors.Resolution("workspace", err)
			}
			defer ws.Cleanup()
			archivePath, err = fetch.Archive(context.Background(), foreignPath, ws.Root(), logger.Named("fetch"))
			if err != nil {
				return err
			}
		}

		resolution, err := foreign.NewResolver(logger.Named("resolver")).Resolve(archivePath)
		if err != nil {
			return err
		}
		defer resolution.Close()

		chosen, err := foreign.SelectExecutable(resolution.Candidates, choose, logger)
		if err != nil {
			return err
		}

		mergeMetadata(desc, resolution.Metadata, chosen)
		payload = resolution.Root
	}

	var mode fs.FileMode
	if payloadMode != "" {
		perm, err := permissions.ParseOctalString(payloadMode)
		if err != nil {
			return npkerrors.Assembly("parse payload mode", err)
		}
		mode = fs.FileMode(perm)
	}

	builder := format.NewBuilder(format.BuildOptions{
		Descriptor:  desc,
		PayloadPath: payload,
		PayloadMode: mode,
		HooksDir:    hooksDir,
		IconPath:    iconPath,
		OutputPath:  outputPath,
	}, logger.Named("builder"))
	return builder.Build()
}

// mergeMetadata fills descriptor fields the conf left empty from the foreign
// archive metadata. The selected executable becomes the service entry point
// unless the conf already named one.
func mergeMetadata(desc *format.Descriptor, meta foreign.Metadata, chosen foreign.Candidate) {
	seed := meta.Descriptor()
	if desc.Name == "" {
		desc.Name = seed.Name
	}
	if desc.DisplayName == "" {
		desc.DisplayName = seed.DisplayName
	}
	if desc.Version == "" {
		desc.Version = seed.Version
	}
	if desc.Summary == "" {
		desc.Summary = seed.Summary
	}
	if desc.Author == "" {
		desc.Author = seed.Author
	}
	if desc.ServiceProgram == "" {
		desc.ServiceProgram = chosen.Path
	}
}
