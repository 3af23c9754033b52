package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/pdf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options controls a run of the extractor
type Options struct {
	ImagesRoot     string
	DPI            float64
	TextBackend    pdf.TextBackend
	RenderPages    bool
	EmbeddedImages bool
	MaxFileSize    int64
	Rules          PhaseRules
}

// Progress is notified once per processed document. session is nil when the
// document failed or was skipped.
type Progress func(file pdf.FileInfo, session *library.Session, err error)

// Extractor turns PDFs into sessions
type Extractor struct {
	opts   Options
	logger zerolog.Logger
	runID  string

	validate     func(path string) error
	openDocument func(path string) (pdf.Document, error)
	openRenderer func(path string) (renderer pdf.PageRenderer, closeFn func() error, err error)
	embedded     func(path, imagesRoot string, sessionID int) ([]library.Image, error)
}

// New creates an extractor; every session it produces carries the same run id
func New(opts Options, logger zerolog.Logger) *Extractor {
	if opts.Rules == nil {
		opts.Rules = DefaultPhaseRules()
	}
	if opts.DPI <= 0 {
		opts.DPI = pdf.DefaultDPI
	}

	runID := uuid.NewString()
	e := &Extractor{
		opts:   opts,
		logger: logger.With().Str("run_id", runID).Logger(),
		runID:  runID,
	}

	validator := pdf.NewValidator(opts.MaxFileSize)
	assets := pdf.NewAssets(e.logger)

	e.validate = validator.ValidateFile
	e.openDocument = func(path string) (pdf.Document, error) {
		return pdf.Open(path, opts.TextBackend)
	}
	e.openRenderer = func(path string) (pdf.PageRenderer, func() error, error) {
		doc, err := pdf.OpenFitz(path)
		if err != nil {
			return nil, nil, err
		}
		return doc, doc.Close, nil
	}
	e.embedded = assets.ExtractEmbedded

	return e
}

// RunID returns the provenance id stamped on extracted sessions
func (e *Extractor) RunID() string { return e.runID }

// ExtractFile extracts one session from the PDF at path. The document is
// closed before returning, also on failure.
func (e *Extractor) ExtractFile(path string) (*library.Session, error) {
	sessionID, err := pdf.ParseSessionID(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := e.validate(path); err != nil {
		return nil, err
	}

	log := e.logger.With().Int("session_id", sessionID).Str("file", path).Logger()

	pages, err := e.readPages(path, log)
	if err != nil {
		return nil, err
	}

	var images []library.Image
	if e.opts.RenderPages {
		rendered, err := e.renderFile(path, sessionID)
		if err != nil {
			return nil, err
		}
		images = append(images, rendered...)
	}
	if e.opts.EmbeddedImages {
		embedded, err := e.embedded(path, e.opts.ImagesRoot, sessionID)
		if err != nil {
			log.Warn().Err(err).Msg("embedded image extraction failed")
		}
		images = append(images, embedded...)
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Page < images[j].Page
	})

	session := Assemble(Input{
		SourceFile: path,
		SessionID:  sessionID,
		Pages:      pages,
		Images:     images,
		Rules:      e.opts.Rules,
		RunID:      e.runID,
	})

	log.Info().Str("title", session.Title).Int("drills", len(session.Drills)).
		Int("images", session.ImageCount()).Msg("session extracted")
	return &session, nil
}

func (e *Extractor) readPages(path string, log zerolog.Logger) ([]string, error) {
	doc, err := e.openDocument(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close document")
		}
	}()

	pages := make([]string, doc.PageCount())
	for i := range pages {
		text, err := doc.PageText(i + 1)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("page text extraction failed")
			continue
		}
		pages[i] = text
	}
	return pages, nil
}

// RenderFile renders all pages of the PDF at path into the session image
// directory
func (e *Extractor) RenderFile(path string) ([]library.Image, error) {
	sessionID, err := pdf.ParseSessionID(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e.renderFile(path, sessionID)
}

func (e *Extractor) renderFile(path string, sessionID int) ([]library.Image, error) {
	renderer, closeFn, err := e.openRenderer(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeFn(); err != nil {
			e.logger.Warn().Err(err).Str("file", path).Msg("failed to close document")
		}
	}()

	return pdf.RenderPages(renderer, e.opts.ImagesRoot, sessionID, e.opts.DPI, e.logger)
}

// Update extracts every PDF in dir whose session is not yet in lib and merges
// the results. A failing document is logged and skipped; cancellation stops
// the batch before the merge.
func (e *Extractor) Update(ctx context.Context, lib *library.Library, dir string, progress Progress) (library.MergeResult, error) {
	files, err := pdf.NewSearch(e.opts.MaxFileSize, e.logger).FindPDFs(dir)
	if err != nil {
		return library.MergeResult{}, err
	}

	e.logger.Info().Int("files", len(files)).Int("existing", len(lib.Sessions)).Msg("starting library update")

	var sessions []library.Session
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return library.MergeResult{}, err
		}

		if lib.HasSession(file.SessionID) {
			e.logger.Info().Str("file", file.Name).Int("session_id", file.SessionID).Msg("already in library, skipping")
			notify(progress, file, nil, nil)
			continue
		}

		session, err := e.ExtractFile(file.Path)
		if err != nil {
			e.logger.Error().Err(err).Str("file", file.Name).Msg("extraction failed, skipping document")
			notify(progress, file, nil, err)
			continue
		}

		sessions = append(sessions, *session)
		notify(progress, file, session, nil)
	}

	return library.Merge(lib, sessions, e.logger), nil
}

// UpdatePages re-renders the pages of every PDF in dir whose session is in lib
// and reassigns drill images by page. It returns the updated session ids.
func (e *Extractor) UpdatePages(ctx context.Context, lib *library.Library, dir string, progress Progress) ([]int, error) {
	files, err := pdf.NewSearch(e.opts.MaxFileSize, e.logger).FindPDFs(dir)
	if err != nil {
		return nil, err
	}

	var updated []int
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		session, ok := lib.FindSession(file.SessionID)
		if !ok {
			e.logger.Info().Str("file", file.Name).Msg("not in library, skipping")
			notify(progress, file, nil, nil)
			continue
		}

		images, err := e.renderFile(file.Path, file.SessionID)
		if err != nil {
			e.logger.Error().Err(err).Str("file", file.Name).Msg("page rendering failed, skipping document")
			notify(progress, file, nil, err)
			continue
		}

		AssignImages(session.Drills, images)
		updated = append(updated, session.ID)
		notify(progress, file, session, nil)
	}

	return updated, nil
}

func notify(progress Progress, file pdf.FileInfo, session *library.Session, err error) {
	if progress != nil {
		progress(file, session, err)
	}
}
