package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
)

// Page is the browser surface the collector drives. Script results are
// returned as raw JSON so callers decode into their own shapes.
type Page interface {
	// WaitElement blocks until selector matches or timeout elapses.
	WaitElement(selector string, timeout time.Duration) error
	// Text returns the text of the first element matching selector.
	Text(selector string, timeout time.Duration) (string, error)
	// Elements waits for selector and returns every match.
	Elements(selector string, timeout time.Duration) ([]Element, error)
	// Eval runs a JS function expression in the page.
	Eval(js string, args ...any) ([]byte, error)
	// HTML returns the rendered document.
	HTML() (string, error)
	Close() error
}

// Element is one node inside a Page.
type Element interface {
	HTML() (string, error)
	// Eval runs a JS function expression with `this` bound to the element.
	Eval(js string, args ...any) ([]byte, error)
}

// RodPage implements Page on top of a Rod page. Close releases the
// whole browser session the page belongs to.
type RodPage struct {
	page     *rod.Page
	teardown func() error
	once     sync.Once
	closeErr error
	logger   *slog.Logger
}

// NewRodPage wraps a Rod page. teardown is called exactly once by Close.
func NewRodPage(ctx context.Context, page *rod.Page, teardown func() error, logger *slog.Logger) *RodPage {
	return &RodPage{
		page:     page.Context(ctx),
		teardown: teardown,
		logger:   logger.With("component", "rod_page"),
	}
}

func (p *RodPage) WaitElement(selector string, timeout time.Duration) error {
	if _, err := p.page.Timeout(timeout).Element(selector); err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Text(selector string, timeout time.Duration) (string, error) {
	if err := p.WaitElement(selector, timeout); err != nil {
		return "", err
	}
	els, err := p.page.Elements(selector)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", fmt.Errorf("element not found: %s", selector)
	}
	return els.First().Text()
}

func (p *RodPage) Elements(selector string, timeout time.Duration) ([]Element, error) {
	if err := p.WaitElement(selector, timeout); err != nil {
		return nil, err
	}
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (p *RodPage) Eval(js string, args ...any) ([]byte, error) {
	res, err := p.page.Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return []byte(res.Value.JSON("", "")), nil
}

func (p *RodPage) HTML() (string, error) {
	return p.page.HTML()
}

// Close tears down the session. Safe to call more than once.
func (p *RodPage) Close() error {
	p.once.Do(func() {
		if p.teardown != nil {
			p.closeErr = p.teardown()
		}
		p.logger.Debug("browser session closed")
	})
	return p.closeErr
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) HTML() (string, error) {
	return e.el.HTML()
}

func (e *rodElement) Eval(js string, args ...any) ([]byte, error) {
	res, err := e.el.Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("element eval: %w", err)
	}
	return []byte(res.Value.JSON("", "")), nil
}
