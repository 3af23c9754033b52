package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/mcp"
	"github.com/a3tai/hblib/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <library.json>",
		Short: "Serve the library, its variants and images over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			lib, err := library.Load(args[0])
			if err != nil {
				return err
			}
			baseURL, _ := cmd.Flags().GetString("base-url")
			ver, _ := cmd.Flags().GetString("version")

			srv, err := server.New(lib, server.Options{
				ImagesRoot: a.cfg.ImagesRoot,
				Version:    ver,
				BaseURL:    baseURL,
			}, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.out.Info("Serving %s on http://%s", args[0], a.cfg.Address())
			return srv.Run(ctx, a.cfg.Address())
		},
	}
	cmd.Flags().String("base-url", "", "Image base URL of the remote variant (default: this server)")
	cmd.Flags().String("version", "preview", "Library version stamped into the remote variant")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp <library.json>",
		Short: "Expose the library as MCP tools over stdio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			lib, err := a.loadOrEmpty(args[0])
			if err != nil {
				return err
			}
			pdfDir, _ := cmd.Flags().GetString("pdf-dir")
			noImages, _ := cmd.Flags().GetBool("no-images")

			extractor, err := a.newExtractor(!noImages)
			if err != nil {
				return err
			}
			srv, err := mcp.NewServer(a.cfg, lib, extractor, mcp.Options{LibraryPath: args[0], PDFDir: pdfDir}, a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("pdf-dir", ".", "Directory library_extract_pdf may read PDFs from")
	cmd.Flags().Bool("no-images", false, "Do not render page images when extracting")
	return cmd
}
