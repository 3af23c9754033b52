// Package main is the entry point of the hblib command line tool.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/a3tai/hblib/internal/config"
	"github.com/a3tai/hblib/internal/logging"
	"github.com/a3tai/hblib/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// app carries what every subcommand needs once the root has loaded config
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	out    *ui.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "hblib",
		Short: "Build the handball drill library from training PDFs",
		Long: `hblib extracts training sessions and drills from handball training PDFs
into a JSON library, renders page images, and packages the library for the app
as a .hblib archive, a remote-image JSON or an XLSX overview.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	config.DefineFlags(root.PersistentFlags(), config.DefaultConfig())

	root.AddCommand(
		newExtractCmd(a),
		newPagesCmd(a),
		newPackageCmd(a),
		newRemoteCmd(a),
		newManifestCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newVerifyCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads .env, the configuration and the logger
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if version != "dev" {
		cfg.Version = version
	}
	a.cfg = cfg

	a.logger = logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if cfg.IsDebug() {
		a.logger.Debug().Str("config", cfg.String()).Msg("configuration loaded")
	}

	if w := cmd.OutOrStdout(); w == io.Writer(os.Stdout) {
		a.out = ui.NewPrinter(false)
	} else {
		a.out = ui.NewPrinterTo(w)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs no configuration
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "hblib\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}
