package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/ReviewGoat/internal/automation"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// BrowserLauncher opens one isolated headless browser per product page.
type BrowserLauncher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

// NewBrowserLauncher creates a launcher for the given browser settings.
func NewBrowserLauncher(cfg config.BrowserConfig, logger *slog.Logger) *BrowserLauncher {
	return &BrowserLauncher{
		cfg:    cfg,
		logger: logger.With("component", "browser_launcher"),
	}
}

// Open launches Chromium, navigates to url and returns the loaded page.
// Closing the returned page kills the browser process. On error every
// resource acquired so far is already released.
func (bl *BrowserLauncher) Open(ctx context.Context, url string) (automation.Page, error) {
	profile := NewStealthProfile(bl.cfg.UserAgents)

	l := launcher.New().
		Context(ctx).
		Headless(bl.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", profile.WindowSize())
	if profile.UserAgent != "" {
		l = l.Set("user-agent", profile.UserAgent)
	}
	if bl.cfg.BinPath != "" {
		l = l.Bin(bl.cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &types.CollectError{URL: url, Stage: "launch", Err: err}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &types.CollectError{URL: url, Stage: "launch", Err: fmt.Errorf("connect browser: %w", err)}
	}

	teardown := func() error {
		err := browser.Close()
		l.Kill()
		l.Cleanup()
		return err
	}

	page, err := bl.newPage(browser)
	if err != nil {
		_ = teardown()
		return nil, &types.CollectError{URL: url, Stage: "launch", Err: err}
	}

	if err := profile.Apply(page); err != nil {
		bl.logger.Warn("stealth profile not fully applied", "error", err)
	}

	if err := page.Context(ctx).Timeout(bl.cfg.PageLoadTimeout).Navigate(url); err != nil {
		_ = teardown()
		return nil, &types.CollectError{URL: url, Stage: "navigate", Err: err}
	}
	if err := page.Context(ctx).Timeout(bl.cfg.PageLoadTimeout).WaitLoad(); err != nil {
		bl.logger.Warn("page load timeout, continuing", "url", url, "error", err)
	}

	// Review widgets are injected after load.
	if bl.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			_ = teardown()
			return nil, ctx.Err()
		case <-time.After(bl.cfg.SettleDelay):
		}
	}

	bl.logger.Debug("page opened",
		"url", url,
		"user_agent", profile.UserAgent,
		"viewport", profile.WindowSize(),
		"stealth", bl.cfg.Stealth,
	)

	return automation.NewRodPage(ctx, page, teardown, bl.logger), nil
}

func (bl *BrowserLauncher) newPage(browser *rod.Browser) (*rod.Page, error) {
	if bl.cfg.Stealth {
		page, err := stealth.Page(browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	return browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}
