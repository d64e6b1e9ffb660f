package store

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultHeader is written to newly created lists.
var DefaultHeader = [3]string{"name", "tags", "score"}

// TagSeparator joins tags inside the tags column.
const TagSeparator = ";"

// Row is one item row as stored on disk. Score keeps its text form so
// unchanged rows are written back exactly as they were normalised on load.
type Row struct {
	Name  string `json:"name"`
	Tags  string `json:"tags"`
	Score string `json:"score"`
}

// TagList splits the tags column into trimmed, non-empty tags.
func (r Row) TagList() []string {
	return SplitTags(r.Tags)
}

// ScoreValue parses the score column. Unparsable values read as 0.
func (r Row) ScoreValue() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Score), 64)
	if err != nil {
		return 0
	}
	return v
}

// ListFile is the in-memory form of one CSV list.
type ListFile struct {
	Name      string
	HasHeader bool
	Header    [3]string
	Rows      []Row
}

// SplitTags splits a semicolon separated tag string, dropping blanks.
func SplitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, TagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// FormatScore renders a score the way list files store it: the shortest
// decimal that parses back to the same float64, always with a fractional
// part ("1.0", "0.2", "-0.9").
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// ParseList reads a list file. Expected rows are name,tags[,score]. If the
// first non-empty line starts with "name," (any case) it is taken as a
// header, widened with "score" when it has only two columns. Rows with no
// name or no tags are skipped and reported in the returned LoadErrors; an
// unparsable score is loaded as 0.
func ParseList(name string, r io.Reader) (*ListFile, []LoadError, error) {
	lf := &ListFile{Name: name, Header: DefaultHeader}
	var loadErrs []LoadError

	// Lines may be any length.
	br := bufio.NewReader(r)
	lineNum := 0
	first := true
	for {
		text, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, loadErrs, fmt.Errorf("reading %s: %w", name, readErr)
		}
		if readErr == io.EOF && text == "" {
			break
		}
		lineNum++
		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}

		if first && strings.HasPrefix(strings.ToLower(line), "name,") {
			first = false
			lf.HasHeader = true
			cols := strings.Split(line, ",")
			if len(cols) >= 3 && strings.EqualFold(cols[2], "score") {
				lf.Header = [3]string{cols[0], cols[1], cols[2]}
			} else {
				lf.Header = [3]string{cols[0], cols[1], "score"}
			}
			continue
		}
		first = false

		parts := strings.SplitN(line, ",", 3)
		itemName := strings.TrimSpace(parts[0])
		if itemName == "" {
			loadErrs = append(loadErrs, newLoadError(name, lineNum, line, "missing item name"))
			continue
		}
		if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
			loadErrs = append(loadErrs, newLoadError(name, lineNum, line, "missing tags"))
			continue
		}
		tagsPart := strings.TrimSpace(parts[1])
		if len(SplitTags(tagsPart)) == 0 {
			loadErrs = append(loadErrs, newLoadError(name, lineNum, line, "no usable tags"))
			continue
		}

		score := 0.0
		if len(parts) == 3 {
			if raw := strings.TrimSpace(parts[2]); raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					loadErrs = append(loadErrs, newLoadError(name, lineNum, line, fmt.Sprintf("invalid score %q, using 0", raw)))
				} else {
					score = v
				}
			}
		}

		lf.Rows = append(lf.Rows, Row{Name: itemName, Tags: tagsPart, Score: FormatScore(score)})
	}
	return lf, loadErrs, nil
}

// WriteList writes lf in full: the header if the file had one, then every row
// as name,tags,score.
func WriteList(w io.Writer, lf *ListFile) error {
	bw := bufio.NewWriter(w)
	if lf.HasHeader {
		if _, err := fmt.Fprintln(bw, strings.Join(lf.Header[:], ",")); err != nil {
			return err
		}
	}
	for _, row := range lf.Rows {
		if _, err := fmt.Fprintf(bw, "%s,%s,%s\n", row.Name, row.Tags, row.Score); err != nil {
			return err
		}
	}
	return bw.Flush()
}
