package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/internal/config"
	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/pipeline"
	"github.com/dshills/proposal-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "proposal-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	oracle   oracle.Oracle
	pipeline *pipeline.Pipeline
	cfg      *config.Config
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance from a validated configuration
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	o, err := oracle.New(ctx, cfg.OracleFactoryConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize oracle: %w", err)
	}

	s, err := newServer(cfg, store, o, logger)
	if err != nil {
		_ = oracle.Close(o)
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

// newServer assembles a server around already constructed dependencies
func newServer(cfg *config.Config, store storage.Storage, o oracle.Oracle, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		oracle:   o,
		pipeline: pipeline.New(o, store, logger, pipeline.OptionsFromConfig(cfg)),
		cfg:      cfg,
		logger:   logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Info("mcp server configured",
		zap.String("oracle", o.Name()),
		zap.String("db", cfg.DBPath),
		zap.String("driver", storage.DriverName))

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the storage and the oracle
func (s *Server) Close() error {
	oerr := oracle.Close(s.oracle)
	if err := s.storage.Close(); err != nil {
		return err
	}
	return oerr
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(analyzeOpportunityTool(), s.handleAnalyzeOpportunity)
	s.mcp.AddTool(getCoverageGapsTool(), s.handleGetCoverageGaps)
	s.mcp.AddTool(getPastPerformanceTool(), s.handleGetPastPerformance)
	s.mcp.AddTool(getThemesTool(), s.handleGetThemes)
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)
	s.mcp.AddTool(extractSectionsTool(), s.handleExtractSections)
	return nil
}
