package mcp

import "github.com/nvandessel/stuckpick/internal/logging"

// ListsInput defines the input for stuckpick_lists.
type ListsInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"Which index to list: files, tags, or empty for both"`
}

// ListSummary names one list file or tag and how many items it holds.
type ListSummary struct {
	Name  string `json:"name"`
	Items int    `json:"items"`
}

// ListsOutput defines the output for stuckpick_lists.
type ListsOutput struct {
	Files []ListSummary `json:"files,omitempty" jsonschema:"List files in the data directory"`
	Tags  []ListSummary `json:"tags,omitempty" jsonschema:"Tags across every list"`
}

// PickInput defines the input for stuckpick_pick. Exactly one of File and
// Tag is required.
type PickInput struct {
	File  string   `json:"file,omitempty" jsonschema:"List file to pick from, for example food.csv"`
	Tag   string   `json:"tag,omitempty" jsonschema:"Tag to pick from, matched exactly"`
	Skip  []string `json:"skip,omitempty" jsonschema:"Item names to leave out for the rest of the session"`
	Reset bool     `json:"reset,omitempty" jsonschema:"Forget skipped items for this file or tag first"`
}

// PickOutput defines the output for stuckpick_pick.
type PickOutput struct {
	Found     bool     `json:"found" jsonschema:"Whether a suggestion was made"`
	Item      string   `json:"item,omitempty" jsonschema:"Suggested item name"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Tags of the suggested item"`
	Score     float64  `json:"score" jsonschema:"Current preference score of the suggestion"`
	Remaining int      `json:"remaining" jsonschema:"Items in scope that have not been skipped"`
	Message   string   `json:"message"`
}

// FeedbackInput defines the input for stuckpick_feedback.
type FeedbackInput struct {
	Name   string `json:"name" jsonschema:"Exact item name"`
	Signal string `json:"signal" jsonschema:"Either like or dislike"`
	Tag    string `json:"tag,omitempty" jsonschema:"Tag the item was picked from, if any"`
}

// RateInput defines the input for stuckpick_rate.
type RateInput struct {
	Tag    string `json:"tag" jsonschema:"Tag whose items are searched"`
	Name   string `json:"name" jsonschema:"Item name, matched ignoring case"`
	Signal string `json:"signal" jsonschema:"Either like or dislike"`
}

// FeedbackOutput defines the output for stuckpick_feedback and stuckpick_rate.
type FeedbackOutput struct {
	Item    string                `json:"item"`
	Found   bool                  `json:"found" jsonschema:"False when no item has that name"`
	Changes []logging.ScoreChange `json:"changes,omitempty" jsonschema:"Every score that was updated"`
	Files   []string              `json:"files,omitempty" jsonschema:"List files rewritten"`
	Message string                `json:"message"`
}

// BackupInput defines the input for stuckpick_backup.
type BackupInput struct {
	OutputPath string `json:"output_path,omitempty" jsonschema:"Where to write the backup; defaults to a timestamped file in the backup directory"`
}

// BackupOutput defines the output for stuckpick_backup.
type BackupOutput struct {
	Path    string `json:"path"`
	Items   int    `json:"items"`
	Message string `json:"message"`
}

// RestoreInput defines the input for stuckpick_restore.
type RestoreInput struct {
	InputPath string `json:"input_path" jsonschema:"Backup file to restore scores from"`
}

// RestoreOutput defines the output for stuckpick_restore.
type RestoreOutput struct {
	Restored int      `json:"restored"`
	Missing  []string `json:"missing,omitempty" jsonschema:"Backed up items no longer in any list"`
	Message  string   `json:"message"`
}
