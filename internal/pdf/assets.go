package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/hblib/internal/library"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
)

// Assets extracts embedded raster images with pdfcpu
type Assets struct {
	logger zerolog.Logger
}

// NewAssets creates an embedded image extractor
func NewAssets(logger zerolog.Logger) *Assets {
	return &Assets{logger: logger}
}

// EmbeddedImageName returns the file name of an embedded image, e.g. 78-2_img1.jpg
func EmbeddedImageName(sessionID, page, index int, ext string) string {
	return fmt.Sprintf("%d-%d_img%d.%s", sessionID, page, index, ext)
}

// ExtractEmbedded writes every decodable embedded image of the PDF at path into
// the session image directory. Images are numbered per page in object number
// order; unsupported codecs keep their index but are not written.
func (a *Assets) ExtractEmbedded(path, imagesRoot string, sessionID int) ([]library.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	dir := SessionImageDir(imagesRoot, sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	var images []library.Image
	for page := 1; page <= ctx.PageCount; page++ {
		images = append(images, a.extractPage(ctx, dir, sessionID, page)...)
	}

	return images, nil
}

func (a *Assets) extractPage(ctx *model.Context, dir string, sessionID, page int) (images []library.Image) {
	log := a.logger.With().Int("session_id", sessionID).Int("page", page).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("embedded image extraction panicked")
		}
	}()

	byObj, err := pdfcpu.ExtractPageImages(ctx, page, false)
	if err != nil {
		log.Warn().Err(err).Msg("embedded image extraction failed")
		return nil
	}

	objNrs := make([]int, 0, len(byObj))
	for objNr := range byObj {
		objNrs = append(objNrs, objNr)
	}
	sort.Ints(objNrs)

	for i, objNr := range objNrs {
		img := byObj[objNr]
		index := i + 1

		ext := normalizeImageFormat(img.FileType)
		if ext == "" {
			log.Warn().Int("obj", objNr).Str("format", img.FileType).Msg("unsupported image codec, skipping")
			continue
		}

		data, err := io.ReadAll(img)
		if err != nil {
			log.Warn().Err(err).Int("obj", objNr).Msg("failed to read embedded image")
			continue
		}

		name := EmbeddedImageName(sessionID, page, index, ext)
		if err := os.WriteFile(filepath.Join(dir, name), data, library.DefaultFilePerm); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("failed to write embedded image")
			continue
		}

		images = append(images, library.Image{
			Path:  library.RelativeImagePath(sessionID, name),
			Page:  page,
			Order: index,
			Type:  library.ImageTypeEmbedded,
		})
	}

	return images
}

// normalizeImageFormat maps a pdfcpu file type to the extension written to
// disk; "" means the codec is not supported
func normalizeImageFormat(fileType string) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "jpg"
	case "png":
		return "png"
	case "tif", "tiff":
		return "tif"
	case "jpx", "jp2":
		return "jp2"
	default:
		return ""
	}
}
