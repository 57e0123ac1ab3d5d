package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skycrawl/pkg/crawler"
)

func TestProgressPrinterLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf, false)

	p.FollowersProgress(2, 1)
	p.PostsProgress(5, 3)
	p.Done(crawler.Summary{Users: 2, Posts: 5, Duration: 1500 * time.Millisecond})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "FOLLOWERS: 2", lines[0])
	assert.Equal(t, "QUEUE: 1", lines[1])
	assert.Equal(t, "POSTS: 5", lines[2])
	assert.Equal(t, "QUEUE: 3", lines[3])
	assert.Equal(t, "DONE", lines[4])
	assert.Contains(t, lines[5], "2 users, 5 posts")
}

func TestProgressPrinterQuiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf, true)

	p.FollowersProgress(10, 4)
	p.PostsProgress(3, 0)
	p.Done(crawler.Summary{})

	assert.Equal(t, "DONE\n", buf.String())
}

func TestProgressPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	NewProgressPrinter(&buf, false).WithColor().FollowersProgress(1, 0)
	assert.Contains(t, buf.String(), "\033[36m")
}

type fakeSender struct {
	titles []string
	err    error
}

func (f *fakeSender) Send(title, message string) error {
	f.titles = append(f.titles, title)
	return f.err
}

type countingObserver struct {
	crawler.NopObserver
	done int
}

func (c *countingObserver) Done(crawler.Summary) { c.done++ }

func TestNotifierForwardsAndNotifies(t *testing.T) {
	sender := &fakeSender{err: errors.New("no display")}
	next := &countingObserver{}
	n := NewNotifierWithSender(next, sender)

	n.FollowersProgress(1, 1)
	n.Done(crawler.Summary{Seed: "alice.test"})

	assert.Equal(t, 1, next.done)
	assert.Equal(t, []string{"skycrawl finished"}, sender.titles)

	// A nil sender and nil observer are both tolerated
	NewNotifierWithSender(nil, nil).Done(crawler.Summary{})
}

func TestPrintHelpersUseOutput(t *testing.T) {
	var buf bytes.Buffer
	old := Output
	Output = &buf
	defer func() { Output = old }()

	PrintError("login failed", errors.New("bad password"))
	PrintInfo("Seed", "alice.test")
	PrintWarning("careful")
	PrintSuccess("ok")

	out := buf.String()
	assert.Contains(t, out, "login failed: bad password")
	assert.Contains(t, out, "alice.test")
	assert.Contains(t, out, "careful")
}
