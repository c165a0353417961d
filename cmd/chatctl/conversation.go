package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/relaydesk/live-chat/internal/chat"
	"github.com/relaydesk/live-chat/internal/domain"
)

// conversation wires the synchronizer, composer and typing tracker of one
// participant in one request to a terminal.
type conversation struct {
	self     domain.Participant
	sync     *chat.Synchronizer
	composer *chat.Composer
	typing   *chat.TypingTracker
	out      io.Writer
}

func newConversation(e *env, requestID string, self domain.Participant) *conversation {
	return &conversation{
		self: self,
		sync: chat.NewSynchronizer(requestID, self, chat.SyncDeps{
			Messages: e.api,
			Feed:     e.feed,
			Logger:   e.logger,
			PageSize: e.cfg.Chat.PageSize,
		}),
		composer: chat.NewComposer(requestID, self, chat.ComposerDeps{
			Messages:      e.api,
			Uploader:      e.api,
			MaxImageBytes: e.cfg.Chat.MaxImageBytes,
			Logger:        e.logger,
		}),
		typing: chat.NewTypingTracker(requestID, self, chat.TypingDeps{
			Publisher: e.api,
			Idle:      e.cfg.Chat.TypingIdle(),
			Debounce:  e.cfg.Chat.TypingDebounce(),
			Logger:    e.logger,
		}),
		out: os.Stdout,
	}
}

// run blocks until stdin closes, "/quit" is typed or ctx ends. Lines are
// sent as messages; "/image <path> [caption]" attaches an image.
func (c *conversation) run(ctx context.Context, in io.Reader) error {
	if err := c.sync.Open(ctx); err != nil {
		return err
	}
	defer c.sync.Close()
	defer c.typing.Stop()

	go c.render()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "/quit" {
				return nil
			}
			c.typing.OnInput(line)
			draft, err := parseDraft(line)
			if err != nil {
				fmt.Fprintln(c.out, "!", err)
				continue
			}
			if _, err := c.composer.Send(ctx, draft); err != nil {
				fmt.Fprintln(c.out, "!", err)
			}
			c.typing.OnInput("")
		}
	}
}

func parseDraft(line string) (chat.Draft, error) {
	if !strings.HasPrefix(line, "/image ") {
		return chat.Draft{Text: line}, nil
	}
	fields := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(line, "/image ")), " ", 2)
	data, err := os.ReadFile(fields[0])
	if err != nil {
		return chat.Draft{}, fmt.Errorf("read image: %w", err)
	}
	d := chat.Draft{Image: &chat.ImageDraft{Name: filepath.Base(fields[0]), Data: data}}
	if len(fields) == 2 {
		d.Text = fields[1]
	}
	return d, nil
}

func (c *conversation) render() {
	printed := map[string]domain.DeliveryStatus{}
	peerTyping := false
	for view := range c.sync.Updates() {
		for _, m := range view.Messages {
			prev, seen := printed[m.ID]
			switch {
			case !seen:
				fmt.Fprintln(c.out, formatMessage(m, c.self))
			case m.SenderID == c.self.ID && prev != m.Status && m.Status == domain.DeliveryRead:
				fmt.Fprintf(c.out, "  (read: %s)\n", truncate(m.Content, 30))
			}
			printed[m.ID] = m.Status
		}
		if view.PeerTyping != peerTyping {
			peerTyping = view.PeerTyping
			if peerTyping {
				fmt.Fprintln(c.out, "  ...typing")
			}
		}
	}
}

func formatMessage(m domain.Message, self domain.Participant) string {
	who := string(m.SenderRole)
	if m.SenderID == self.ID {
		who = "you"
	}
	line := fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	if m.ImageURL != nil {
		line += " <" + *m.ImageURL + ">"
	}
	return line
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
