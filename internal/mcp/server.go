package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/a3tai/hblib/internal/config"
	"github.com/a3tai/hblib/internal/descriptions"
	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/security"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// SessionExtractor turns one PDF into a session
type SessionExtractor interface {
	ExtractFile(path string) (*library.Session, error)
}

// Options configures the library tools
type Options struct {
	// LibraryPath is the library JSON the tools read and, on save, rewrite
	LibraryPath string
	// PDFDir confines the PDFs library_extract_pdf may open
	PDFDir string
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	opts      Options
	extractor SessionExtractor
	pdfRoot   *security.Root
	logger    zerolog.Logger
	mcpServer *server.MCPServer

	mu  sync.RWMutex
	lib *library.Library
}

// NewServer creates a new MCP server exposing lib
func NewServer(cfg *config.Config, lib *library.Library, extractor SessionExtractor, opts Options, logger zerolog.Logger) (*Server, error) {
	if lib == nil {
		return nil, fmt.Errorf("library cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if opts.PDFDir == "" {
		opts.PDFDir = "."
	}
	pdfRoot, err := security.NewRoot(opts.PDFDir)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	lib.Normalize()
	s := &Server{
		config:    cfg,
		opts:      opts,
		extractor: extractor,
		pdfRoot:   pdfRoot,
		logger:    logger,
		mcpServer: mcpServer,
		lib:       lib,
	}
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"library_list_sessions",
		mcp.WithDescription(descriptions.LibraryListSessionsDescription),
	), s.handleListSessions)

	s.mcpServer.AddTool(mcp.NewTool(
		"library_get_session",
		mcp.WithDescription(descriptions.LibraryGetSessionDescription),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Session number, e.g. 78 for TE 78"),
		),
	), s.handleGetSession)

	s.mcpServer.AddTool(mcp.NewTool(
		"library_stats",
		mcp.WithDescription(descriptions.LibraryStatsDescription),
	), s.handleStats)

	s.mcpServer.AddTool(mcp.NewTool(
		"library_extract_pdf",
		mcp.WithDescription(descriptions.LibraryExtractPDFDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path, relative to the PDF directory or absolute inside it"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Merge the session into the library file; existing ids are kept"),
		),
	), s.handleExtractPDF)
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	summaries := library.Summaries(s.lib)
	s.mu.RUnlock()

	if len(summaries) == 0 {
		return mcp.NewToolResultText("The library has no sessions."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d sessions:\n", len(summaries))
	for _, sum := range summaries {
		fmt.Fprintf(&b, "TE %d: %s (%d min, %d drills, %d images)\n",
			sum.ID, sum.Title, sum.DurationTotalMin, sum.Drills, sum.Images)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.lib.FindSession(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %d not found", id)), nil
	}
	data, err := library.EncodeIndent(session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	stats := library.ComputeStats(s.lib)
	s.mu.RUnlock()

	text := fmt.Sprintf("Sessions: %d\nDrills: %d\nImages: %d\n", stats.Sessions, stats.Drills, stats.Images)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	save := request.GetBool("save", false)

	resolved, err := s.resolvePDF(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.extractor.ExtractFile(resolved)
	if err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("extraction failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted TE %d: %s (%d drills, %d images)\n",
		session.ID, session.Title, len(session.Drills), session.ImageCount())

	if save {
		added, err := s.addSession(*session)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if added {
			fmt.Fprintf(&b, "Saved to %s\n", s.opts.LibraryPath)
		} else {
			fmt.Fprintf(&b, "Session %d already in library, not saved\n", session.ID)
		}
	}

	data, err := library.EncodeIndent(session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b.WriteString("\n")
	b.Write(data)
	return mcp.NewToolResultText(b.String()), nil
}

// resolvePDF maps a tool argument to a path inside the PDF directory
func (s *Server) resolvePDF(path string) (string, error) {
	if filepath.IsAbs(path) {
		if !s.pdfRoot.Contains(path) {
			return "", fmt.Errorf("%w: %s", security.ErrOutsideRoot, path)
		}
		return filepath.Clean(path), nil
	}
	return s.pdfRoot.Resolve(filepath.ToSlash(path))
}

// addSession merges session into the library and persists it
func (s *Server) addSession(session library.Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := library.Merge(s.lib, []library.Session{session}, s.logger)
	if len(result.Added) == 0 {
		return false, nil
	}
	if s.opts.LibraryPath == "" {
		return true, nil
	}
	if err := library.Save(s.opts.LibraryPath, s.lib); err != nil {
		return false, fmt.Errorf("failed to save library: %w", err)
	}
	return true, nil
}

// Run serves the tools over stdio until ctx is cancelled or stdin closes
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().
		Str("library", s.opts.LibraryPath).
		Str("pdf_dir", s.pdfRoot.Dir()).
		Msg("starting MCP server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
