package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// FileInfo describes a discovered PDF
type FileInfo struct {
	Path      string
	Name      string
	Size      int64
	SessionID int
}

// Search discovers batch inputs in a directory
type Search struct {
	validator *Validator
	logger    zerolog.Logger
}

// NewSearch creates a search handler with the given size limit
func NewSearch(maxFileSize int64, logger zerolog.Logger) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
		logger:    logger,
	}
}

// FindPDFs lists the PDFs directly inside dir, sorted by file name. Files
// without a session number or failing the cheap validation are skipped with
// a log line.
func (s *Search) FindPDFs(dir string) ([]FileInfo, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isPDFFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot stat file, skipping")
			continue
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping file")
			continue
		}

		id, err := ParseSessionID(entry.Name())
		if err != nil {
			s.logger.Warn().Str("file", entry.Name()).Msg("no session number in file name, skipping")
			continue
		}

		files = append(files, FileInfo{
			Path:      path,
			Name:      entry.Name(),
			Size:      info.Size(),
			SessionID: id,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

func isPDFFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
