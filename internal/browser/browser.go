package browser

import (
	"fmt"
	"image"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/credbridge/internal/page"
)

// Options configures the browser
type Options struct {
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
}

// Browser wraps the Rod browser and the page being driven
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
}

// Launch starts Chromium and opens url
func Launch(url string, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless)

	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	b := &Browser{browser: browser, page: page, opts: opts}

	if opts.Width > 0 && opts.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if url != "" {
		if err := b.Navigate(url); err != nil {
			b.Close()
			return nil, err
		}
	}

	return b, nil
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.page != nil {
		b.page.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Navigate loads url and waits for the page to settle
func (b *Browser) Navigate(url string) error {
	page := b.page.Timeout(b.opts.Timeout)

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	// Wait for network idle with timeout (don't hang on persistent connections)
	b.page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	return nil
}

// URL returns the current page URL
func (b *Browser) URL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title returns the current page title
func (b *Browser) Title() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// Screenshot captures the viewport as PNG
func (b *Browser) Screenshot() ([]byte, error) {
	return b.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Bounds returns the on-screen box of an input returned by a Document
func Bounds(in page.Input) (image.Rectangle, error) {
	ri, ok := in.(*input)
	if !ok {
		return image.Rectangle{}, fmt.Errorf("not a browser input")
	}

	box, err := ri.el.Shape()
	if err != nil {
		return image.Rectangle{}, err
	}
	if len(box.Quads) == 0 {
		return image.Rectangle{}, fmt.Errorf("element has no shape")
	}

	return quadBounds(box.Quads[0]), nil
}

// quadBounds returns the rectangle enclosing a DOM quad (x1,y1 .. x4,y4)
func quadBounds(quad proto.DOMQuad) image.Rectangle {
	if len(quad) < 8 {
		return image.Rectangle{}
	}
	minX, minY := quad[0], quad[1]
	maxX, maxY := quad[0], quad[1]
	for i := 2; i+1 < len(quad); i += 2 {
		minX = min(minX, quad[i])
		maxX = max(maxX, quad[i])
		minY = min(minY, quad[i+1])
		maxY = max(maxY, quad[i+1])
	}
	return image.Rect(int(minX), int(minY), int(maxX), int(maxY))
}
