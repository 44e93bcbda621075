package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/automation"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Opener opens a product page in a fresh browser session.
type Opener interface {
	Open(ctx context.Context, url string) (automation.Page, error)
}

// StopReason records why pagination ended.
type StopReason string

const (
	StopReachedMax       StopReason = "reached_max"
	StopRetriesExhausted StopReason = "retries_exhausted"
	StopNoNextPage       StopReason = "no_next_page"
	StopPageLimit        StopReason = "page_limit"
)

// Result is the outcome of one collection.
type Result struct {
	Reviews         []types.Review
	AdvertisedTotal int
	Pages           int
	StopReason      StopReason
	ProductImage    string
}

// Partial reports whether collection ended early because pages kept failing.
func (r *Result) Partial() bool {
	return r.StopReason == StopRetriesExhausted
}

// Collector paginates a reviews widget and extracts deduplicated reviews.
type Collector struct {
	opener    Opener
	extractor Extractor
	sel       Selectors
	cfg       config.CollectorConfig
	metrics   *observability.Metrics
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures the Collector.
type Option func(*Collector)

// WithSelectors overrides the widget markup contract.
func WithSelectors(sel Selectors) Option {
	return func(c *Collector) { c.sel = sel }
}

// WithExtractor sets the card extractor.
func WithExtractor(e Extractor) Option {
	return func(c *Collector) { c.extractor = e }
}

// WithMetrics records collection counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) { c.sleep = fn }
}

// New creates a Collector.
func New(opener Opener, cfg config.CollectorConfig, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		opener: opener,
		sel:    StampedSelectors(),
		cfg:    cfg,
		logger: logger.With("component", "collector"),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = &ScriptExtractor{sel: c.sel}
	}
	if c.cfg.MaxRetries < 1 {
		c.cfg.MaxRetries = 3
	}
	return c
}

// Collect gathers up to maxReviews reviews from url. maxReviews <= 0 means
// the widget's advertised total; when that is unknown, pagination alone
// ends collection. The browser session is always released.
func (c *Collector) Collect(ctx context.Context, url string, maxReviews int) (*Result, error) {
	page, err := c.opener.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			c.logger.Warn("browser teardown failed", "url", url, "error", cerr)
		}
	}()

	if err := page.WaitElement(c.sel.Widget, c.cfg.WidgetTimeout); err != nil {
		return nil, &types.CollectError{
			URL:   url,
			Stage: "widget",
			Err:   fmt.Errorf("%w: %v", types.ErrWidgetNotFound, err),
		}
	}

	res := &Result{AdvertisedTotal: c.advertisedTotal(page)}

	limit := maxReviews
	if limit <= 0 {
		limit = res.AdvertisedTotal
	}
	bounded := limit > 0

	c.logger.Info("collecting reviews",
		"url", url,
		"advertised", res.AdvertisedTotal,
		"limit", limit,
		"extractor", c.extractor.Name(),
	)

	dedup := NewDeduplicator(limit)
	cursor := 1
	retries := 0
	needClick := false

	for (!bounded || len(res.Reviews) < limit) && retries < c.cfg.MaxRetries {
		if needClick {
			ok, err := c.nextPage(page, cursor)
			if err != nil {
				retries++
				c.metrics.IncPageRetries()
				c.logger.Warn("pagination failed", "page", cursor, "retry", retries, "error", err)
				if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			needClick = false
			if !ok {
				res.StopReason = StopNoNextPage
				break
			}
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return nil, err
			}
		}

		batch, err := c.extractPage(page)
		var fresh []types.Review
		if err == nil {
			fresh = dedup.Filter(batch)
		}
		if len(fresh) == 0 {
			retries++
			c.metrics.IncPageRetries()
			c.logger.Warn("no new reviews on page",
				"page", cursor,
				"retry", retries,
				"error", err,
			)
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		res.Reviews = append(res.Reviews, fresh...)
		res.Pages++
		retries = 0
		cursor++
		c.metrics.IncPages()
		c.metrics.IncReviews(len(fresh))

		c.logger.Debug("page collected",
			"page", res.Pages,
			"new", len(fresh),
			"total", len(res.Reviews),
		)

		if c.cfg.MaxPages > 0 && res.Pages >= c.cfg.MaxPages {
			res.StopReason = StopPageLimit
			break
		}
		needClick = true
	}

	if res.StopReason == "" {
		if retries >= c.cfg.MaxRetries {
			res.StopReason = StopRetriesExhausted
		} else {
			res.StopReason = StopReachedMax
		}
	}

	if bounded && len(res.Reviews) > limit {
		res.Reviews = res.Reviews[:limit]
	}

	if html, err := page.HTML(); err == nil {
		res.ProductImage = ProductImage(html)
	}

	c.logger.Info("collection finished",
		"url", url,
		"reviews", len(res.Reviews),
		"pages", res.Pages,
		"stop", res.StopReason,
	)

	return res, nil
}

// advertisedTotal reads the widget summary; 0 when absent or unparseable.
func (c *Collector) advertisedTotal(page automation.Page) int {
	text, err := page.Text(c.sel.Summary, c.cfg.ElementTimeout)
	if err != nil {
		c.logger.Debug("review summary not found", "error", err)
		return 0
	}
	return c.sel.ParseReviewCount(text)
}

// extractPage reads every card currently rendered. Cards that fail to
// extract or have no text are skipped.
func (c *Collector) extractPage(page automation.Page) ([]types.Review, error) {
	cards, err := page.Elements(c.sel.Card, c.cfg.ElementTimeout)
	if err != nil {
		return nil, err
	}

	reviews := make([]types.Review, 0, len(cards))
	for i, card := range cards {
		raw, err := c.extractor.Extract(card)
		if err != nil {
			c.logger.Debug("skipping review card", "index", i, "error", err)
			continue
		}
		r := raw.Review()
		if r.Text == "" {
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

const clickScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.click();
	return true;
}`

// nextPage clicks the control for page index. false means no such control.
func (c *Collector) nextPage(page automation.Page, index int) (bool, error) {
	out, err := page.Eval(clickScript, fmt.Sprintf(c.sel.PageLink, index))
	if err != nil {
		return false, err
	}
	var clicked bool
	if err := json.Unmarshal(out, &clicked); err != nil {
		return false, fmt.Errorf("decode click result: %w", err)
	}
	return clicked, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
