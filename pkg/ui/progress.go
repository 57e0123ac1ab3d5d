package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"skycrawl/pkg/crawler"
)

// ProgressPrinter is a crawler.Observer that prints plain progress lines:
//
//	FOLLOWERS: 12
//	QUEUE: 4
//	POSTS: 80
//	QUEUE: 3
//	DONE
//
// In quiet mode only DONE is printed.
type ProgressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	color bool
}

var _ crawler.Observer = (*ProgressPrinter)(nil)

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer, quiet bool) *ProgressPrinter {
	return &ProgressPrinter{out: out, quiet: quiet}
}

// WithColor enables ANSI colors on the labels
func (p *ProgressPrinter) WithColor() *ProgressPrinter {
	p.color = true
	return p
}

func (p *ProgressPrinter) label(s string) string {
	if p.color {
		return Cyan(s)
	}
	return s
}

// FollowersProgress prints the discovered count and queue depth
func (p *ProgressPrinter) FollowersProgress(discovered, queued int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %d\n", p.label("FOLLOWERS:"), discovered)
	fmt.Fprintf(p.out, "%s %d\n", p.label("QUEUE:"), queued)
}

// PostsProgress prints the merged post count and feeds still outstanding
func (p *ProgressPrinter) PostsProgress(posts, remaining int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %d\n", p.label("POSTS:"), posts)
	fmt.Fprintf(p.out, "%s %d\n", p.label("QUEUE:"), remaining)
}

// Done prints the completion line
func (p *ProgressPrinter) Done(summary crawler.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	done := "DONE"
	if p.color {
		done = Green(done)
	}
	fmt.Fprintln(p.out, done)
	if !p.quiet {
		fmt.Fprintf(p.out, "%s %d users, %d posts in %s\n",
			p.label("SUMMARY:"), summary.Users, summary.Posts, summary.Duration.Round(time.Millisecond))
	}
}
