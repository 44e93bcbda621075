package dashboard

import (
	"html"
	"log/slog"
	"net/http"
	"strings"
)

// Dashboard serves the single-page review report UI. The page talks to
// the JSON API mounted on the same router.
type Dashboard struct {
	page   []byte
	logger *slog.Logger
}

// New renders the page once for the given version.
func New(version string, logger *slog.Logger) *Dashboard {
	page := strings.ReplaceAll(dashboardHTML, "{{version}}", html.EscapeString(version))
	return &Dashboard{
		page:   []byte(page),
		logger: logger.With("component", "dashboard"),
	}
}

// ServeHTTP writes the dashboard page.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(d.page); err != nil {
		d.logger.Debug("dashboard write failed", "error", err)
	}
}
