package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/leaguecrawl/internal/model"
)

// Status is the data rendered by WriteStatus.
type Status struct {
	// Checkpoint is the path of the checkpoint database.
	Checkpoint string

	// Remote is the mirror location, e.g. "s3://bucket/prefix/". Empty
	// means the mirror is disabled.
	Remote string

	// Exists is false when nothing has been saved yet.
	Exists  bool
	Version int64
	SavedAt time.Time
	Counts  model.Counts
}

// Complete reports whether a saved crawl has nothing left to expand.
func (s Status) Complete() bool {
	return s.Exists && s.Counts.PendingLeagues == 0 && s.Counts.PendingUsers == 0
}

// WriteStatus renders s as Markdown to w.
func WriteStatus(w io.Writer, s Status) error {
	md := markdown.NewMarkdown(w)

	writeHeader(md, s)
	writeFrontier(md, s)
	writeAlert(md, s)

	return md.Build()
}

func writeHeader(md *markdown.Markdown, s Status) {
	md.H1("League Crawl Status")
	md.PlainText("")

	remote := s.Remote
	if remote == "" {
		remote = "disabled"
	}
	savedAt := "never"
	version := "-"
	if s.Exists {
		savedAt = s.SavedAt.UTC().Format(time.RFC3339)
		version = strconv.FormatInt(s.Version, 10)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Checkpoint", s.Checkpoint},
			{"Remote Mirror", remote},
			{"Snapshot Version", version},
			{"Saved At", savedAt},
		},
	})
	md.PlainText("")
}

func writeFrontier(md *markdown.Markdown, s Status) {
	md.H2("Frontier")
	md.PlainText("")

	p := newPrinter()
	md.Table(markdown.TableSet{
		Header: []string{"Queue", "Count"},
		Rows: [][]string{
			{"Discovered Leagues", p.Sprintf("%d", s.Counts.Discovered)},
			{"Pending Leagues", p.Sprintf("%d", s.Counts.PendingLeagues)},
			{"Pending Users", p.Sprintf("%d", s.Counts.PendingUsers)},
			{"Queried Users", p.Sprintf("%d", s.Counts.QueriedUsers)},
		},
	})
	md.PlainText("")
}

func writeAlert(md *markdown.Markdown, s Status) {
	switch {
	case !s.Exists:
		md.Note("No checkpoint has been saved yet. Run `leaguecrawl crawl` to start.")
	case s.Complete():
		md.Tip(fmt.Sprintf("Crawl complete: %s leagues discovered and both queues are empty.",
			newPrinter().Sprintf("%d", s.Counts.Discovered)))
	default:
		p := newPrinter()
		md.Importantf("%s leagues and %s users are still pending.",
			p.Sprintf("%d", s.Counts.PendingLeagues),
			p.Sprintf("%d", s.Counts.PendingUsers))
	}
	md.PlainText("")
}
