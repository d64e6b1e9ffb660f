package interactive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/stuckpick/internal/store"
)

// Manage runs the list management menu on its own.
func (s *Session) Manage(ctx context.Context) error {
	return finish(s.manage(ctx))
}

func (s *Session) manage(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.plain("")
		s.say(s.styles.Title, "=== Manage Lists ===")
		s.plain("[1] Create new list")
		s.plain("[2] Edit existing list")
		s.plain("[3] Back")
		choice, err := s.ask("Choose an option (1-3): ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = s.createList(ctx)
		case "2":
			err = s.editList(ctx)
		case "3":
			return nil
		default:
			s.warn("Invalid option. Enter 1, 2, or 3.")
		}
		if err != nil {
			return err
		}
	}
}

// readItem asks for one name and tag line. ok is false when the name was
// blank.
func (s *Session) readItem() (name, tags string, ok bool, err error) {
	name, err = s.ask("Item name: ")
	if err != nil || name == "" {
		return "", "", false, err
	}
	tags, err = s.ask("Tags (semicolon-separated): ")
	if err != nil {
		return "", "", false, err
	}
	return name, tags, true, nil
}

func (s *Session) createList(ctx context.Context) error {
	s.plain("")
	s.plain("Enter new list filename (e.g. 'mylist.csv'):")
	filename, err := s.ask("")
	if err != nil {
		return err
	}
	if !store.IsListName(filename) {
		s.warn("Filename must end with .csv. Aborting.")
		return nil
	}
	if _, err := os.Stat(filepath.Join(s.eng.DataDir(), filename)); err == nil {
		s.warn("File already exists. Aborting.")
		return nil
	}

	var rows []store.Row
	s.plain("Enter items for this list (leave name blank to finish).")
	for {
		name, tags, ok, err := s.readItem()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row, err := store.NewRow(name, tags)
		if err != nil {
			s.warn("Must enter at least one tag. Skipping item.")
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		s.warn("No items entered. Aborting file creation.")
		return nil
	}

	if err := s.eng.CreateList(ctx, filename, rows); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidListName):
			s.warn("Invalid filename. Aborting.")
		case errors.Is(err, store.ErrListExists):
			s.warn("File already exists. Aborting.")
		default:
			s.warn("Failed to write file: %v", err)
		}
		return nil
	}
	s.say(s.styles.Success, "Created %s with %d items.", filename, len(rows))
	return nil
}

// chooseIndex reads a 1-based number below n. ok is false when the user
// cancelled or typed something unusable; the message has been printed.
func (s *Session) chooseIndex(n int, invalid, outOfRange string) (idx int, ok bool, err error) {
	line, err := s.ask("Enter number (or blank to cancel): ")
	if err != nil || line == "" {
		return 0, false, err
	}
	v, convErr := strconv.Atoi(line)
	if convErr != nil {
		s.warn(invalid)
		return 0, false, nil
	}
	if v < 1 || v > n {
		s.warn(outOfRange)
		return 0, false, nil
	}
	return v - 1, true, nil
}

func (s *Session) editList(ctx context.Context) error {
	files := s.eng.Files()
	if len(files) == 0 {
		s.warn("No CSV files found to edit.")
		return nil
	}

	s.plain("")
	s.plain("Select a file to edit:")
	for i, f := range files {
		s.plain("  [%d] %s", i+1, f)
	}
	idx, ok, err := s.chooseIndex(len(files), "Invalid input. Aborting edit.", "Index out of range. Aborting edit.")
	if err != nil || !ok {
		return err
	}

	lf, err := s.eng.ReadList(files[idx])
	if err != nil {
		s.warn("Failed to read file: %v", err)
		return nil
	}

	for {
		s.plain("")
		s.say(s.styles.Title, "Editing: %s", lf.Name)
		s.plain("[1] Add item")
		s.plain("[2] Remove item")
		s.plain("[3] View all items")
		s.plain("[4] Save and return")
		choice, err := s.ask("Choose (1-4): ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			name, tags, ok, err := s.readItem()
			if err != nil {
				return err
			}
			if !ok {
				s.warn("Name cannot be blank.")
				continue
			}
			row, err := store.NewRow(name, tags)
			if err != nil {
				s.warn("Must enter at least one tag.")
				continue
			}
			lf.Rows = append(lf.Rows, row)
			s.plain("Added: %s", row.Name)

		case "2":
			if len(lf.Rows) == 0 {
				s.warn("No items to remove.")
				continue
			}
			s.plain("Select item to remove:")
			for i, r := range lf.Rows {
				s.plain("  [%d] %s (tags=%s, score=%s)", i+1, r.Name, r.Tags, r.Score)
			}
			idx, ok, err := s.chooseIndex(len(lf.Rows), "Invalid input.", "Index out of range.")
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			removed := lf.Rows[idx]
			lf.Rows = append(lf.Rows[:idx], lf.Rows[idx+1:]...)
			s.plain("Removed: %s", removed.Name)

		case "3":
			if len(lf.Rows) == 0 {
				s.warn("No items in this list.")
				continue
			}
			s.plain("Current items:")
			for _, r := range lf.Rows {
				s.plain("  - %s (tags=%s, score=%s)", r.Name, r.Tags, r.Score)
			}

		case "4":
			if err := s.eng.SaveList(ctx, lf); err != nil {
				s.warn("Failed to write file: %v", err)
			} else {
				s.say(s.styles.Success, "Saved changes to %s", lf.Name)
			}
			return nil

		default:
			s.warn("Please enter 1, 2, 3, or 4.")
		}
	}
}
