package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"murmur/internal/chunk"
	"murmur/internal/domain"
	"murmur/internal/metrics"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"
)

// PageSummarizer condenses the page behind a URL into chat-ready text.
type PageSummarizer interface {
	Summarize(ctx context.Context, pageURL string) (string, error)
}

// Poller periodically fetches every watched feed and announces new entries to
// the response channel, summarized like any other page.
type Poller struct {
	manager  *Manager
	bus      domain.MessageBus
	pages    PageSummarizer
	parser   *gofeed.Parser
	channel  string
	chatID   string
	chunkLen int
	interval time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

type PollerConfig struct {
	Manager  *Manager
	Bus      domain.MessageBus
	Pages    PageSummarizer
	Channel  string
	ChatID   string // response channel id; announcements land here
	ChunkLen int
	Interval time.Duration
	Logger   *slog.Logger
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.ChunkLen <= 0 {
		cfg.ChunkLen = 1500
	}
	return &Poller{
		manager:  cfg.Manager,
		bus:      cfg.Bus,
		pages:    cfg.Pages,
		parser:   gofeed.NewParser(),
		channel:  cfg.Channel,
		chatID:   cfg.ChatID,
		chunkLen: cfg.ChunkLen,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start schedules polling until ctx is cancelled. Non-blocking.
func (p *Poller) Start(ctx context.Context) error {
	p.cron = cron.New()
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() { p.pollAll(ctx) }); err != nil {
		return fmt.Errorf("schedule feed poll: %w", err)
	}
	p.cron.Start()

	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()

	p.logger.Info("feed poller started", "interval", p.interval)
	return nil
}

func (p *Poller) pollAll(ctx context.Context) {
	for url, lastSeen := range p.manager.List() {
		if err := p.pollOne(ctx, url, lastSeen); err != nil {
			p.logger.Warn("feed poll failed", "url", url, "err", err)
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, url, lastSeen string) error {
	parsed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil
	}

	newest := parsed.Items[0]
	marker := itemMarker(newest)
	if marker == "" || marker == lastSeen {
		return nil
	}

	// First sighting of a feed only records the marker; announcing the
	// current newest entry on watch would replay old news.
	if lastSeen == "" {
		p.manager.MarkSeen(url, marker)
		return nil
	}

	p.announce(ctx, parsed.Title, newest)
	p.manager.MarkSeen(url, marker)
	metrics.FeedAnnouncesTotal.Inc()
	return nil
}

func (p *Poller) announce(ctx context.Context, feedTitle string, item *gofeed.Item) {
	header := fmt.Sprintf("**%s** has a new article: %s\n%s", feedTitle, item.Title, item.Link)
	p.send(header)

	if item.Link == "" {
		return
	}
	summary, err := p.pages.Summarize(ctx, item.Link)
	if err != nil {
		p.logger.Warn("could not summarize feed article", "link", item.Link, "err", err)
		return
	}
	p.send(summary)
}

func (p *Poller) send(content string) {
	for _, part := range chunk.Split(content, p.chunkLen) {
		p.bus.SendOutbound(domain.OutboundMessage{
			Channel: p.channel,
			ChatID:  p.chatID,
			Content: part,
		})
	}
}

// itemMarker identifies a feed entry, preferring the GUID over the link.
func itemMarker(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}
