// Package mcp exposes the picker over the Model Context Protocol so an
// assistant can list lists, ask for a suggestion and relay the user's
// reaction.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/stuckpick/internal/backup"
	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/logging"
	"github.com/nvandessel/stuckpick/internal/pathutil"
	"github.com/nvandessel/stuckpick/internal/ratelimit"
)

// Server wraps the MCP SDK server around an Engine.
type Server struct {
	server          *sdk.Server
	engine          *engine.Engine
	toolLimiters    ratelimit.ToolLimiters
	audit           *AuditLogger
	retentionPolicy backup.RetentionPolicy
	backupDir       string
	logger          *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string
	Version string

	// Engine serves every tool. The server closes it on Close.
	Engine *engine.Engine

	// StateDir holds the audit log. Empty disables auditing.
	StateDir string

	// BackupDir receives stuckpick_backup output. Defaults to ~/.stuckpick/backups.
	BackupDir string

	Logger *slog.Logger
}

// NewServer creates an MCP server with the stuckpick tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("mcp: engine not set")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	backupDir := cfg.BackupDir
	if backupDir == "" {
		dir, err := backup.DefaultBackupDir()
		if err != nil {
			return nil, err
		}
		backupDir = dir
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:          mcpServer,
		engine:          cfg.Engine,
		toolLimiters:    ratelimit.NewToolLimiters(),
		retentionPolicy: &backup.CountPolicy{MaxCount: 10},
		backupDir:       backupDir,
		logger:          logger,
	}
	if cfg.StateDir != "" {
		s.audit = NewAuditLogger(cfg.StateDir)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the client disconnects, the context is
// cancelled or the process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the audit log and the engine.
func (s *Server) Close() error {
	s.audit.Close()
	return s.engine.Close()
}

// allowedBackupDirs lists where user-supplied backup paths may point.
func (s *Server) allowedBackupDirs() ([]string, error) {
	dirs, err := pathutil.DefaultAllowedBackupDirs(s.engine.DataDir())
	if err != nil {
		return nil, err
	}
	return append(dirs, s.backupDir), nil
}
