// Package archive packs a library and its drill images into a .hblib zip
// container and reads such containers back.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/hblib/internal/library"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

// Fixed layout of an archive
const (
	LibraryEntry  = "library.json"
	ManifestEntry = "images/drill_images_manifest_v2.json"
	ImagesPrefix  = "images/"

	ManifestVersion = "v2"
	ManifestRoot    = "drill_images_v2"
	ManifestType    = "full_page_screenshots"
)

// ImageManifest lists the archived images of every drill
type ImageManifest struct {
	Version   string                 `json:"version"`
	Root      string                 `json:"root"`
	Type      string                 `json:"type"`
	CreatedAt string                 `json:"created_at"`
	Drills    map[string]DrillImages `json:"drills"`
}

// DrillImages is one manifest entry
type DrillImages struct {
	SessionID int      `json:"session_id"`
	Images    []string `json:"images"`
}

// Options controls packaging
type Options struct {
	// ImagesRoot is the directory image paths are relative to
	ImagesRoot string
	// Optimized writes the compact library and manifest with maximum compression
	Optimized bool
	// Now stamps the manifest and entry times; zero means time.Now
	Now time.Time
}

// Result summarises a written archive
type Result struct {
	Sessions     int
	Drills       int
	ImageRefs    int
	UniqueImages int
	Missing      int
	Rejected     int
	Size         int64
}

// File is one image copied into the archive
type File struct {
	Src  string
	Dest string
}

// ErrUnsafeImagePath is returned for image paths that would leave the image
// directory of the archive
var ErrUnsafeImagePath = errors.New("image path outside " + library.ImageDirRoot)

// ArchivePath maps a library image path to its path below images/ in the
// archive, e.g. drill_images/TE_078/a.png -> drill_images_v2/TE_078/a.png.
// Only relative paths below drill_images/ without ".." segments are accepted.
func ArchivePath(imagePath string) (string, error) {
	rest, ok := strings.CutPrefix(imagePath, library.ImageDirRoot+"/")
	if !ok || rest == "" || strings.Contains(imagePath, "\\") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeImagePath, imagePath)
	}
	for _, segment := range strings.Split(rest, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafeImagePath, imagePath)
		}
	}
	return path.Join(ManifestRoot, rest), nil
}

// BuildManifest collects the image references of lib. Images that do not
// exist below imagesRoot or whose path ArchivePath rejects are logged and
// left out; duplicate references are listed once.
func BuildManifest(lib *library.Library, imagesRoot string, now time.Time, logger zerolog.Logger) (*ImageManifest, []File, Result) {
	manifest := &ImageManifest{
		Version:   ManifestVersion,
		Root:      ManifestRoot,
		Type:      ManifestType,
		CreatedAt: now.Format(time.RFC3339),
		Drills:    make(map[string]DrillImages),
	}

	result := Result{Sessions: len(lib.Sessions)}
	unique := make(map[File]bool)
	missing := make(map[string]bool)
	rejected := make(map[string]bool)

	for _, s := range lib.Sessions {
		for _, d := range s.Drills {
			result.Drills++
			var refs []string
			seen := make(map[string]bool)

			for _, img := range d.Images {
				dest, err := ArchivePath(img.Path)
				if err != nil {
					if !rejected[img.Path] {
						logger.Warn().Err(err).Str("drill_id", d.DrillID).Msg("skipping image")
						rejected[img.Path] = true
					}
					continue
				}

				src := filepath.Join(imagesRoot, filepath.FromSlash(img.Path))
				if _, err := os.Stat(src); err != nil {
					if !missing[src] {
						logger.Warn().Str("image", img.Path).Str("drill_id", d.DrillID).Msg("image not found, leaving it out")
						missing[src] = true
					}
					continue
				}

				unique[File{Src: src, Dest: dest}] = true
				result.ImageRefs++
				if !seen[dest] {
					seen[dest] = true
					refs = append(refs, dest)
				}
			}

			if len(refs) > 0 {
				manifest.Drills[d.DrillID] = DrillImages{SessionID: s.ID, Images: refs}
			}
		}
	}

	files := make([]File, 0, len(unique))
	for f := range unique {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Src != files[j].Src {
			return files[i].Src < files[j].Src
		}
		return files[i].Dest < files[j].Dest
	})

	result.UniqueImages = len(files)
	result.Missing = len(missing)
	result.Rejected = len(rejected)
	return manifest, files, result
}

// Packager writes archives
type Packager struct {
	opts   Options
	logger zerolog.Logger
}

// NewPackager creates a packager
func NewPackager(opts Options, logger zerolog.Logger) *Packager {
	return &Packager{opts: opts, logger: logger}
}

// Write packs lib into an archive at out. The archive is written to a temp
// file first and renamed into place.
func (p *Packager) Write(lib *library.Library, out string, progress func(done, total int)) (*Result, error) {
	now := p.opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	lib.Normalize()

	encode := library.EncodeIndent
	level := flate.DefaultCompression
	var libraryDoc any = lib
	if p.opts.Optimized {
		encode = library.EncodeCompact
		level = flate.BestCompression
		libraryDoc = library.Compact(lib)
	}

	libraryJSON, err := encode(libraryDoc)
	if err != nil {
		return nil, err
	}

	manifest, files, result := BuildManifest(lib, p.opts.ImagesRoot, now, p.logger)
	manifestJSON, err := encode(manifest)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	writeErr := func() error {
		if err := writeEntry(zw, LibraryEntry, now, libraryJSON); err != nil {
			return err
		}
		if err := writeEntry(zw, ManifestEntry, now, manifestJSON); err != nil {
			return err
		}
		for i, f := range files {
			if err := copyEntry(zw, ImagesPrefix+f.Dest, now, f.Src); err != nil {
				return err
			}
			if progress != nil {
				progress(i+1, len(files))
			}
		}
		return zw.Close()
	}()
	if writeErr != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write archive: %w", writeErr)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("cannot close %s: %w", out, err)
	}
	if err := os.Chmod(tmpName, library.DefaultFilePerm); err != nil {
		return nil, fmt.Errorf("cannot chmod %s: %w", out, err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		return nil, fmt.Errorf("cannot replace %s: %w", out, err)
	}

	if info, err := os.Stat(out); err == nil {
		result.Size = info.Size()
	}

	p.logger.Info().Str("archive", out).Bool("optimized", p.opts.Optimized).
		Int("sessions", result.Sessions).Int("drills", result.Drills).
		Int("images", result.UniqueImages).Int("missing", result.Missing).Int("rejected", result.Rejected).
		Int64("bytes", result.Size).Msg("archive written")
	return &result, nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func copyEntry(zw *zip.Writer, name string, modified time.Time, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
