package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Contents is an archive read back into memory, except for image bytes
type Contents struct {
	LibraryJSON []byte
	Manifest    ImageManifest
	Images      map[string]int64 // path below images/ -> uncompressed size
}

// Open reads the library, the manifest and the image listing of an archive
func Open(path string) (*Contents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	contents := &Contents{Images: make(map[string]int64)}
	var manifestJSON []byte

	for _, f := range zr.File {
		switch {
		case f.Name == LibraryEntry:
			if contents.LibraryJSON, err = readEntry(f); err != nil {
				return nil, err
			}
		case f.Name == ManifestEntry:
			if manifestJSON, err = readEntry(f); err != nil {
				return nil, err
			}
		case strings.HasPrefix(f.Name, ImagesPrefix) && !strings.HasSuffix(f.Name, "/"):
			contents.Images[strings.TrimPrefix(f.Name, ImagesPrefix)] = int64(f.UncompressedSize64)
		}
	}

	if contents.LibraryJSON == nil {
		return nil, fmt.Errorf("archive has no %s", LibraryEntry)
	}
	if manifestJSON == nil {
		return nil, fmt.Errorf("archive has no %s", ManifestEntry)
	}
	if err := json.Unmarshal(manifestJSON, &contents.Manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return contents, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return data, nil
}

// MissingImages returns manifest references that have no file in the archive
func (c *Contents) MissingImages() []string {
	var missing []string
	for _, entry := range c.Manifest.Drills {
		for _, img := range entry.Images {
			if _, ok := c.Images[img]; !ok {
				missing = append(missing, img)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Verify fails when the manifest references an image the archive lacks
func (c *Contents) Verify() error {
	if missing := c.MissingImages(); len(missing) > 0 {
		return fmt.Errorf("%d manifest images missing from archive, first: %s", len(missing), missing[0])
	}
	return nil
}
