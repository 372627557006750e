package report

import (
	"io"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/leaguecrawl/internal/checkpoint"
	"github.com/nao1215/leaguecrawl/internal/crawler"
)

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// Progress prints console progress lines. The zero value is not usable;
// call NewProgress.
type Progress struct {
	mu  sync.Mutex
	out io.Writer
	p   *message.Printer
}

// NewProgress returns a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out, p: newPrinter()}
}

// Update prints one line for a merged batch. It has the signature expected
// by crawler.WithProgress.
func (p *Progress) Update(pr crawler.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pr.Phase == crawler.PhaseLeagues {
		p.p.Fprintf(p.out, "Processing League Queue | Progress: %d/%d | Users Found: %d\n",
			pr.Done, pr.Total, pr.Found)
		return
	}
	p.p.Fprintf(p.out, "Processing User Queue | Progress: %d/%d | Unique Leagues Found: %d\n",
		pr.Done, pr.Total, pr.Found)
}

// Saved prints the line shown after a checkpoint commit.
func (p *Progress) Saved(stats checkpoint.SaveStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.p.Fprintf(p.out, "Saved Progress | %d Leagues Captured | %d new at %.1f leagues/min\n",
		stats.TotalLeagues, stats.NewLeagues, stats.LeaguesPerMinute)
}
