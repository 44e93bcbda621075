package fetcher

import (
	"fmt"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// StealthProfile is the desktop fingerprint presented by one browser session.
type StealthProfile struct {
	UserAgent           string
	ViewportWidth       int
	ViewportHeight      int
	Language            string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
}

// NewStealthProfile picks a random desktop fingerprint. userAgents must not be empty.
func NewStealthProfile(userAgents []string) *StealthProfile {
	viewports := []struct{ w, h int }{
		{1920, 1080}, {1366, 768}, {1536, 864},
		{1440, 900}, {1280, 720}, {2560, 1440},
	}
	vp := viewports[rand.Intn(len(viewports))]

	platforms := []string{"Win32", "MacIntel", "Linux x86_64"}

	ua := ""
	if len(userAgents) > 0 {
		ua = userAgents[rand.Intn(len(userAgents))]
	}

	return &StealthProfile{
		UserAgent:           ua,
		ViewportWidth:       vp.w,
		ViewportHeight:      vp.h,
		Language:            "en-US",
		Platform:            platforms[rand.Intn(len(platforms))],
		HardwareConcurrency: 4 + rand.Intn(13),
		DeviceMemory:        8,
	}
}

// WindowSize formats the viewport for the --window-size launch flag.
func (sp *StealthProfile) WindowSize() string {
	return fmt.Sprintf("%d,%d", sp.ViewportWidth, sp.ViewportHeight)
}

// Script returns JS evaluated before any page script runs.
func (sp *StealthProfile) Script() string {
	return fmt.Sprintf(`() => {
Object.defineProperty(navigator, 'webdriver', { get: () => false });
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
if (!window.chrome) {
	window.chrome = { runtime: {}, loadTimes: () => ({}), csi: () => ({}) };
}
}`, sp.Platform, sp.Language, sp.Language, sp.HardwareConcurrency, sp.DeviceMemory)
}

// Apply sets the user agent, viewport and navigator overrides on page.
func (sp *StealthProfile) Apply(page *rod.Page) error {
	if sp.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      sp.UserAgent,
			AcceptLanguage: sp.Language,
			Platform:       sp.Platform,
		})
		if err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             sp.ViewportWidth,
		Height:            sp.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(sp.Script()); err != nil {
		return fmt.Errorf("inject navigator overrides: %w", err)
	}
	return nil
}
