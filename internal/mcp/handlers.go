package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/stuckpick/internal/backup"
	"github.com/nvandessel/stuckpick/internal/engine"
	"github.com/nvandessel/stuckpick/internal/pathutil"
	"github.com/nvandessel/stuckpick/internal/ratelimit"
	"github.com/nvandessel/stuckpick/internal/session"
	"github.com/nvandessel/stuckpick/internal/store"
)

const scoresURI = "stuckpick://scores"

// registerTools registers all stuckpick MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_lists",
		Description: "List the available list files and tags with their item counts",
	}, s.handleLists)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_pick",
		Description: "Suggest one item from a list file or a tag, weighted by preference score",
	}, s.handlePick)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_feedback",
		Description: "Like or dislike an item; items sharing a tag with it are nudged the same way",
	}, s.handleFeedback)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_rate",
		Description: "Like or dislike one item within a tag without touching any other item",
	}, s.handleRate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_backup",
		Description: "Save every item score to a JSON backup file",
	}, s.handleBackup)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "stuckpick_restore",
		Description: "Restore item scores from a backup file and rewrite the lists",
	}, s.handleRestore)
}

// registerResources registers the score table resource.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         scoresURI,
		Name:        "stuckpick-scores",
		Description: "Every item with its tags and current preference score, grouped by list file.",
		MIMEType:    "text/markdown",
	}, s.handleScoresResource)
}

func (s *Server) handleScoresResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Stuckpick Scores\n\n")

	items := s.engine.Snapshot()
	if len(items) == 0 {
		sb.WriteString("No items yet. Add CSV lists to the data directory.\n")
	}
	file := ""
	for _, it := range items {
		if it.Source.FileID != file {
			file = it.Source.FileID
			fmt.Fprintf(&sb, "## %s\n\n| Item | Tags | Score |\n|---|---|---|\n", file)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", it.Name, strings.Join(it.Tags, ", "), store.FormatScore(it.Score))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      scoresURI,
			MIMEType: "text/markdown",
			Text:     sb.String(),
		}},
	}, nil
}

// handleLists implements the stuckpick_lists tool.
func (s *Server) handleLists(ctx context.Context, req *sdk.CallToolRequest, args ListsInput) (_ *sdk.CallToolResult, _ ListsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_lists", start, retErr, sanitizeToolParams(map[string]any{"kind": args.Kind}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_lists"); err != nil {
		return nil, ListsOutput{}, err
	}

	var out ListsOutput
	switch args.Kind {
	case "", "files", "tags":
	default:
		return nil, ListsOutput{}, fmt.Errorf("'kind' must be files, tags or empty, got %q", args.Kind)
	}
	if args.Kind != "tags" {
		out.Files = make([]ListSummary, 0)
		for _, f := range s.engine.Files() {
			out.Files = append(out.Files, ListSummary{Name: f, Items: len(s.engine.ItemsFor(session.FileScope(f)))})
		}
	}
	if args.Kind != "files" {
		out.Tags = make([]ListSummary, 0)
		for _, tag := range s.engine.Tags() {
			out.Tags = append(out.Tags, ListSummary{Name: tag, Items: len(s.engine.ItemsFor(session.TagScope(tag)))})
		}
	}
	return nil, out, nil
}

// handlePick implements the stuckpick_pick tool.
func (s *Server) handlePick(ctx context.Context, req *sdk.CallToolRequest, args PickInput) (_ *sdk.CallToolResult, _ PickOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_pick", start, retErr, sanitizeToolParams(map[string]any{"file": args.File, "tag": args.Tag}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_pick"); err != nil {
		return nil, PickOutput{}, err
	}

	var scope session.Scope
	switch {
	case args.File != "" && args.Tag != "":
		return nil, PickOutput{}, fmt.Errorf("set only one of 'file' and 'tag'")
	case args.File != "":
		scope = session.FileScope(args.File)
	case args.Tag != "":
		scope = session.TagScope(args.Tag)
	default:
		return nil, PickOutput{}, fmt.Errorf("'file' or 'tag' parameter is required")
	}

	sess := s.engine.Session()
	if args.Reset {
		sess.Reset(scope)
	}
	for _, name := range args.Skip {
		s.engine.Skip(scope, name)
	}

	it, err := s.engine.Pick(scope)
	if errors.Is(err, engine.ErrNoOptions) {
		return nil, PickOutput{Message: "No more options available."}, nil
	}
	if err != nil {
		return nil, PickOutput{}, err
	}

	return nil, PickOutput{
		Found:     true,
		Item:      it.Name,
		Tags:      append([]string(nil), it.Tags...),
		Score:     it.Score,
		Remaining: len(sess.Eligible(scope, s.engine.ItemsFor(scope))),
		Message:   fmt.Sprintf("Suggested: %s", it.Name),
	}, nil
}

// parseSignal maps "like" and "dislike" to a liked flag.
func parseSignal(signal string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(signal)) {
	case "like", "y", "yes":
		return true, nil
	case "dislike", "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("'signal' must be like or dislike, got %q", signal)
	}
}

func feedbackOutput(res engine.Result) FeedbackOutput {
	out := FeedbackOutput{Item: res.Item, Found: res.Found, Changes: res.Changes, Files: res.Files}
	switch {
	case !res.Found:
		out.Message = fmt.Sprintf("No item named %q; nothing changed.", res.Item)
	case res.Liked:
		out.Message = fmt.Sprintf("Marked '%s' as liked; %d scores updated.", res.Item, len(res.Changes))
	default:
		out.Message = fmt.Sprintf("Marked '%s' as disliked; %d scores updated.", res.Item, len(res.Changes))
	}
	return out
}

// handleFeedback implements the stuckpick_feedback tool.
func (s *Server) handleFeedback(ctx context.Context, req *sdk.CallToolRequest, args FeedbackInput) (_ *sdk.CallToolResult, _ FeedbackOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_feedback", start, retErr, sanitizeToolParams(map[string]any{
			"name": args.Name, "signal": args.Signal, "tag": args.Tag,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_feedback"); err != nil {
		return nil, FeedbackOutput{}, err
	}
	if args.Name == "" {
		return nil, FeedbackOutput{}, fmt.Errorf("'name' parameter is required")
	}
	liked, err := parseSignal(args.Signal)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}

	scope := session.FileScope("")
	if it, ok := s.engine.Lookup(args.Name); ok {
		scope = session.FileScope(it.Source.FileID)
	}
	if args.Tag != "" {
		scope = session.TagScope(args.Tag)
	}

	res, err := s.engine.Feedback(ctx, scope, args.Name, liked)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, feedbackOutput(res), nil
}

// handleRate implements the stuckpick_rate tool.
func (s *Server) handleRate(ctx context.Context, req *sdk.CallToolRequest, args RateInput) (_ *sdk.CallToolResult, _ FeedbackOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_rate", start, retErr, sanitizeToolParams(map[string]any{
			"tag": args.Tag, "name": args.Name, "signal": args.Signal,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_rate"); err != nil {
		return nil, FeedbackOutput{}, err
	}
	if args.Tag == "" || args.Name == "" {
		return nil, FeedbackOutput{}, fmt.Errorf("'tag' and 'name' parameters are required")
	}
	liked, err := parseSignal(args.Signal)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}

	res, err := s.engine.CategoryFeedback(ctx, args.Tag, args.Name, liked)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, feedbackOutput(res), nil
}

// handleBackup implements the stuckpick_backup tool.
func (s *Server) handleBackup(ctx context.Context, req *sdk.CallToolRequest, args BackupInput) (_ *sdk.CallToolResult, _ BackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_backup", start, retErr, sanitizeToolParams(map[string]any{"output_path": args.OutputPath}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_backup"); err != nil {
		return nil, BackupOutput{}, err
	}

	outputPath := args.OutputPath
	var allowed []string
	if outputPath == "" {
		outputPath = backup.GenerateBackupPath(s.backupDir)
	} else {
		dirs, err := s.allowedBackupDirs()
		if err != nil {
			return nil, BackupOutput{}, fmt.Errorf("failed to determine allowed backup dirs: %w", err)
		}
		allowed = dirs
	}

	snap, err := backup.Backup(ctx, s.engine, s.engine.DataDir(), outputPath, allowed...)
	if err != nil {
		return nil, BackupOutput{}, fmt.Errorf("backup failed: %w", err)
	}

	if _, err := backup.ApplyRetention(filepath.Dir(outputPath), s.retentionPolicy); err != nil {
		s.logger.Warn("applying backup retention failed", "error", err)
	}

	return nil, BackupOutput{
		Path:    outputPath,
		Items:   len(snap.Items),
		Message: fmt.Sprintf("Backup created: %d items -> %s", len(snap.Items), pathutil.RedactPath(outputPath)),
	}, nil
}

// handleRestore implements the stuckpick_restore tool.
func (s *Server) handleRestore(ctx context.Context, req *sdk.CallToolRequest, args RestoreInput) (_ *sdk.CallToolResult, _ RestoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("stuckpick_restore", start, retErr, sanitizeToolParams(map[string]any{"input_path": args.InputPath}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "stuckpick_restore"); err != nil {
		return nil, RestoreOutput{}, err
	}
	if args.InputPath == "" {
		return nil, RestoreOutput{}, fmt.Errorf("'input_path' parameter is required")
	}

	allowed, err := s.allowedBackupDirs()
	if err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("failed to determine allowed backup dirs: %w", err)
	}
	res, err := backup.Restore(ctx, s.engine, args.InputPath, allowed...)
	if err != nil {
		return nil, RestoreOutput{}, fmt.Errorf("restore failed: %w", err)
	}

	return nil, RestoreOutput{
		Restored: res.Restored,
		Missing:  res.Missing,
		Message:  fmt.Sprintf("Restore complete: %d scores restored, %d items missing", res.Restored, len(res.Missing)),
	}, nil
}
