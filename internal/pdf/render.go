package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3tai/hblib/internal/library"
	"github.com/rs/zerolog"
)

// DefaultDPI is the page render resolution
const DefaultDPI = 150

// PageImageName returns the file name of a rendered page, e.g. TE_078_page_3.png.
// The name repeats the TE_ prefix of the session directory rather than the
// bare 078_page_3.png form, because published libraries reference the
// prefixed names.
func PageImageName(sessionID, page int) string {
	return fmt.Sprintf("TE_%03d_page_%d.png", sessionID, page)
}

// SessionImageDir returns the directory below imagesRoot that holds the
// images of one session
func SessionImageDir(imagesRoot string, sessionID int) string {
	return filepath.Join(imagesRoot, library.ImageDirRoot, library.SessionDir(sessionID))
}

// RenderPages renders every page of doc to a PNG in the session image
// directory under imagesRoot. A page that fails is logged and skipped.
func RenderPages(doc PageRenderer, imagesRoot string, sessionID int, dpi float64, logger zerolog.Logger) ([]library.Image, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir := SessionImageDir(imagesRoot, sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	images := make([]library.Image, 0, doc.PageCount())
	for page := 1; page <= doc.PageCount(); page++ {
		data, err := doc.RenderPNG(page, dpi)
		if err != nil {
			logger.Warn().Err(err).Int("session_id", sessionID).Int("page", page).Msg("page render failed")
			continue
		}

		name := PageImageName(sessionID, page)
		if err := os.WriteFile(filepath.Join(dir, name), data, library.DefaultFilePerm); err != nil {
			logger.Warn().Err(err).Int("session_id", sessionID).Int("page", page).Msg("failed to write page image")
			continue
		}

		images = append(images, library.Image{
			Path:  library.RelativeImagePath(sessionID, name),
			Page:  page,
			Order: 1,
			Type:  library.ImageTypeFullPage,
		})
	}

	logger.Debug().Int("session_id", sessionID).Int("images", len(images)).Msg("pages rendered")
	return images, nil
}
