package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/a3tai/hblib/internal/extract"
	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/pdf"
	"github.com/a3tai/hblib/internal/ui"
	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract sessions and drills from training PDFs",
	}
	cmd.PersistentFlags().Bool("no-images", false, "Do not render page images")

	cmd.AddCommand(&cobra.Command{
		Use:   "single <pdf> [output.json]",
		Short: "Extract one PDF and optionally write the session as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			noImages, _ := cmd.Flags().GetBool("no-images")
			var output string
			if len(args) > 1 {
				output = args[1]
			}
			return a.extractSingle(args[0], output, !noImages)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <library.json> <pdf_dir> [output.json]",
		Short: "Add every PDF whose session is not yet in the library",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			noImages, _ := cmd.Flags().GetBool("no-images")
			output := args[0]
			if len(args) > 2 {
				output = args[2]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.extractUpdate(ctx, args[0], args[1], output, !noImages)
		},
	})

	return cmd
}

// newExtractor builds an extractor from the loaded configuration
func (a *app) newExtractor(renderPages bool) (*extract.Extractor, error) {
	rules, err := extract.LoadPhaseRules(a.cfg.PhaseRulesPath)
	if err != nil {
		return nil, err
	}
	backend, err := pdf.ParseTextBackend(a.cfg.TextBackend)
	if err != nil {
		return nil, err
	}
	if renderPages || a.cfg.EmbeddedImages {
		if err := a.cfg.EnsureImagesRoot(); err != nil {
			return nil, err
		}
	}

	return extract.New(extract.Options{
		ImagesRoot:     a.cfg.ImagesRoot,
		DPI:            a.cfg.DPI,
		TextBackend:    backend,
		RenderPages:    renderPages,
		EmbeddedImages: a.cfg.EmbeddedImages,
		MaxFileSize:    a.cfg.MaxFileSize,
		Rules:          rules,
	}, a.logger), nil
}

func (a *app) extractSingle(path, output string, renderPages bool) error {
	extractor, err := a.newExtractor(renderPages)
	if err != nil {
		return err
	}

	a.out.Info("Extracting %s...", path)
	session, err := extractor.ExtractFile(path)
	if err != nil {
		return err
	}

	a.out.Success("Extracted session %d: %s", session.ID, session.Title)
	a.out.Info("Duration: %d min", session.DurationTotalMin)
	a.out.Info("Drills: %d", len(session.Drills))
	a.out.Info("Equipment: %s", strings.Join(session.Equipment, ", "))
	if renderPages {
		a.out.Info("Images: %d", session.ImageCount())
	}

	if output == "" {
		return nil
	}
	data, err := library.EncodeIndent(session)
	if err != nil {
		return err
	}
	if err := library.WriteFileAtomic(output, data); err != nil {
		return err
	}
	a.out.Success("Saved to %s", output)
	return nil
}

// loadOrEmpty loads the library at path; a missing file starts a new library
func (a *app) loadOrEmpty(path string) (*library.Library, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.logger.Warn().Str("library", path).Msg("library does not exist, starting a new one")
		return &library.Library{Sessions: []library.Session{}}, nil
	}
	return library.Load(path)
}

func (a *app) extractUpdate(ctx context.Context, libraryPath, dir, output string, renderPages bool) error {
	lib, err := a.loadOrEmpty(libraryPath)
	if err != nil {
		return err
	}
	extractor, err := a.newExtractor(renderPages)
	if err != nil {
		return err
	}

	bar := ui.NewProgressBarTo(os.Stderr, -1, "extracting")
	failed := 0
	result, err := extractor.Update(ctx, lib, dir, func(file pdf.FileInfo, session *library.Session, err error) {
		bar.Add(1)
		switch {
		case err != nil:
			failed++
			a.out.Error("%s: %v", file.Name, err)
		case session != nil:
			a.out.Success("%s -> TE %d: %s (%d drills, %d images)",
				file.Name, session.ID, session.Title, len(session.Drills), session.ImageCount())
		}
	})
	bar.Finish()
	if err != nil {
		return err
	}

	if err := library.Save(output, lib); err != nil {
		return err
	}

	stats := library.ComputeStats(lib)
	a.out.Section("Summary")
	a.out.Success("Added %d new sessions", len(result.Added))
	if len(result.Skipped) > 0 {
		a.out.Info("Skipped %d sessions already in the library", len(result.Skipped))
	}
	if failed > 0 {
		a.out.Warning("%d documents failed", failed)
	}
	a.out.Success("Total sessions: %d", stats.Sessions)
	a.out.Success("Saved to %s", output)
	return nil
}

func newPagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Render full-page images and attach them to drills",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "single <pdf> [dpi]",
		Short: "Render every page of one PDF",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := a.overrideDPI(args, 1); err != nil {
				return err
			}
			return a.pagesSingle(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <library.json> <pdf_dir> <output.json> [dpi]",
		Short: "Render pages for every library session and reassign drill images",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := a.overrideDPI(args, 3); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.pagesUpdate(ctx, args[0], args[1], args[2])
		},
	})

	return cmd
}

// overrideDPI applies the optional positional dpi argument at index i
func (a *app) overrideDPI(args []string, i int) error {
	if len(args) <= i {
		return nil
	}
	var dpi float64
	if _, err := fmt.Sscanf(args[i], "%g", &dpi); err != nil || dpi <= 0 {
		return fmt.Errorf("invalid dpi: %s", args[i])
	}
	a.cfg.DPI = dpi
	return nil
}

func (a *app) pagesSingle(path string) error {
	extractor, err := a.newExtractor(true)
	if err != nil {
		return err
	}

	a.out.Info("Rendering %s at %g dpi...", path, a.cfg.DPI)
	images, err := extractor.RenderFile(path)
	if err != nil {
		return err
	}
	a.out.Success("Rendered %d pages", len(images))
	for _, img := range images {
		a.out.Info("%s", img.Path)
	}
	return nil
}

func (a *app) pagesUpdate(ctx context.Context, libraryPath, dir, output string) error {
	lib, err := library.Load(libraryPath)
	if err != nil {
		return err
	}
	extractor, err := a.newExtractor(true)
	if err != nil {
		return err
	}

	bar := ui.NewProgressBarTo(os.Stderr, -1, "rendering")
	updated, err := extractor.UpdatePages(ctx, lib, dir, func(file pdf.FileInfo, session *library.Session, err error) {
		bar.Add(1)
		if err != nil {
			a.out.Error("%s: %v", file.Name, err)
		} else if session != nil {
			a.out.Success("TE %d: %d images", session.ID, session.ImageCount())
		}
	})
	bar.Finish()
	if err != nil {
		return err
	}

	if err := library.Save(output, lib); err != nil {
		return err
	}
	a.out.Success("Updated %d sessions", len(updated))
	a.out.Success("Saved to %s", output)
	return nil
}
