package main

import (
	"fmt"
	"os"
	"time"

	"github.com/a3tai/hblib/internal/archive"
	"github.com/a3tai/hblib/internal/export"
	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/manifest"
	"github.com/a3tai/hblib/internal/ui"
	"github.com/spf13/cobra"
)

func newPackageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package <library.json> <out.hblib>",
		Short: "Pack the library and its drill images into a .hblib archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			optimized, _ := cmd.Flags().GetBool("optimized")
			return a.pack(args[0], args[1], optimized)
		},
	}
	cmd.Flags().Bool("optimized", false, "Write compact JSON with maximum compression")
	return cmd
}

func (a *app) pack(libraryPath, out string, optimized bool) error {
	lib, err := library.Load(libraryPath)
	if err != nil {
		return err
	}

	var bar *ui.ProgressBar
	packager := archive.NewPackager(archive.Options{ImagesRoot: a.cfg.ImagesRoot, Optimized: optimized}, a.logger)
	result, err := packager.Write(lib, out, func(done, total int) {
		if bar == nil {
			bar = ui.NewProgressBarTo(os.Stderr, total, "packing images")
		}
		bar.Set(done)
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	a.out.Success("Created %s (%.1f MB)", out, float64(result.Size)/(1024*1024))
	a.out.Info("Sessions: %d", result.Sessions)
	a.out.Info("Drills: %d", result.Drills)
	a.out.Info("Images: %d unique, %d references", result.UniqueImages, result.ImageRefs)
	if result.Missing > 0 {
		a.out.Warning("%d images not found below %s", result.Missing, a.cfg.ImagesRoot)
	}
	if result.Rejected > 0 {
		a.out.Warning("%d image paths outside %s skipped", result.Rejected, library.ImageDirRoot)
	}
	return nil
}

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote <library.json> <out.json>",
		Short: "Write the compact library with image paths replaced by URLs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			baseURL, _ := cmd.Flags().GetString("base-url")
			ver, _ := cmd.Flags().GetString("version")
			return a.remote(args[0], args[1], baseURL, ver)
		},
	}
	cmd.Flags().String("base-url", "", "URL prefix every image path is appended to")
	cmd.Flags().String("version", "v15", "Library version to stamp")
	_ = cmd.MarkFlagRequired("base-url")
	return cmd
}

func (a *app) remote(libraryPath, out, baseURL, ver string) error {
	lib, err := library.Load(libraryPath)
	if err != nil {
		return err
	}

	remote := library.Remote(lib, ver, baseURL, time.Now())
	data, err := library.EncodeCompact(remote)
	if err != nil {
		return err
	}
	if err := library.WriteFileAtomic(out, data); err != nil {
		return err
	}

	stats := remote.Stats()
	a.out.Success("Created %s (%.1f KB)", out, float64(len(data))/1024)
	a.out.Info("Sessions: %d", stats.Sessions)
	a.out.Info("Drills: %d", stats.Drills)
	a.out.Info("Images: %d (as remote URLs)", stats.Images)
	a.out.Info("Images will be downloaded on demand from %s", baseURL)
	return nil
}

func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest <manifest.json>",
		Short: "Record a new library release in the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ver, _ := cmd.Flags().GetString("version")
			url, _ := cmd.Flags().GetString("url")
			libraryPath, _ := cmd.Flags().GetString("library")
			message, _ := cmd.Flags().GetString("message")
			return a.updateManifest(args[0], ver, url, libraryPath, message)
		},
	}
	cmd.Flags().String("version", "", "Released library version, e.g. v15")
	cmd.Flags().String("url", "", "Download URL of the released library")
	cmd.Flags().String("library", "", "Released library file the stats are computed from")
	cmd.Flags().String("message", "", "Changelog message")
	for _, name := range []string{"version", "url", "library"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) updateManifest(path, ver, url, libraryPath, message string) error {
	data, err := os.ReadFile(libraryPath)
	if err != nil {
		return fmt.Errorf("cannot read library: %w", err)
	}
	stats, err := library.StatsFromJSON(data)
	if err != nil {
		return err
	}

	m, err := manifest.Load(path, a.cfg.LibraryID, a.cfg.MinAppVersion)
	if err != nil {
		return err
	}
	m.Apply(manifest.Release{Version: ver, URL: url, Stats: stats, Message: message})
	if err := manifest.Save(path, m); err != nil {
		return err
	}

	a.out.Success("Manifest updated to version %s", ver)
	a.out.Info("URL: %s", url)
	a.out.Info("Stats: %d sessions, %d drills, %d images", stats.Sessions, stats.Drills, stats.Images)
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <library.json> <out.xlsx>",
		Short: "Write a spreadsheet with one row per drill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			lib, err := library.Load(args[0])
			if err != nil {
				return err
			}
			if err := export.NewExporter(a.logger).WriteFile(lib, args[1]); err != nil {
				return err
			}
			stats := library.ComputeStats(lib)
			a.out.Success("Exported %d drills of %d sessions to %s", stats.Drills, stats.Sessions, args[1])
			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive.hblib>",
		Short: "Check that an archive holds every image its manifest lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			contents, err := archive.Open(args[0])
			if err != nil {
				return err
			}
			stats, err := library.StatsFromJSON(contents.LibraryJSON)
			if err != nil {
				return err
			}
			a.out.Info("Sessions: %d, drills: %d", stats.Sessions, stats.Drills)
			a.out.Info("Images: %d files, %d drills with images", len(contents.Images), len(contents.Manifest.Drills))

			for _, missing := range contents.MissingImages() {
				a.out.Error("missing %s", missing)
			}
			if err := contents.Verify(); err != nil {
				return err
			}
			a.out.Success("%s is complete", args[0])
			return nil
		},
	}
}
