package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"jordanella.com/pagestitch/internal/cv"
	"jordanella.com/pagestitch/internal/logging"
)

// ChromeOptions configures a headless browser surface
type ChromeOptions struct {
	URL       string
	ExecPath  string  // empty searches CHROME_PATH and PATH
	Width     int     // emulated viewport in CSS pixels, 0 keeps the browser default
	Height    int
	DPR       float64 // emulated device scale factor, 0 keeps the browser default
	Mobile    bool
	UserAgent string
	Headless  bool
	LoadWait  time.Duration // extra wait after navigation for scripts to render
}

// DefaultChromeOptions returns recommended settings
func DefaultChromeOptions() ChromeOptions {
	return ChromeOptions{
		Width:    412,
		Height:   915,
		DPR:      2.625,
		Mobile:   true,
		Headless: true,
		LoadWait: 2 * time.Second,
	}
}

// Chrome is a page in a headless Chrome tab driven over CDP
type Chrome struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *logging.Logger
}

// metrics is the viewport as the page reports it
type metrics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

const metricsScript = `({width: window.innerWidth, height: window.innerHeight, dpr: window.devicePixelRatio})`

// OpenChrome launches a browser, applies the device metrics and loads opts.URL
func OpenChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("chrome surface requires a URL")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("headless", opts.Headless),
	)
	if path := findChrome(opts.ExecPath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	logger := logging.NewLogger("ChromeSurface")

	// The browser outlives ctx, which only bounds page load
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(s string, i ...interface{}) {
			logger.Debug(fmt.Sprintf(s, i...))
		}),
	)

	c := &Chrome{
		tab:         tab,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}

	// The first Run binds the browser lifetime to its context, so it gets the tab itself
	if err := chromedp.Run(tab); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	actions := []chromedp.Action{}
	if opts.Width > 0 && opts.Height > 0 {
		dpr := opts.DPR
		if dpr <= 0 {
			dpr = 1
		}
		actions = append(actions, emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), dpr, opts.Mobile))
	}
	actions = append(actions, chromedp.Navigate(opts.URL))
	if opts.LoadWait > 0 {
		actions = append(actions, chromedp.Sleep(opts.LoadWait))
	}

	if err := c.run(ctx, actions...); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load %s: %w", opts.URL, err)
	}

	logger.InfoWithContext("Page loaded", map[string]interface{}{"url": opts.URL})
	return c, nil
}

// run executes actions on the tab and stops them when ctx is done
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (c *Chrome) metrics(ctx context.Context) (metrics, error) {
	var m metrics
	if err := c.run(ctx, chromedp.Evaluate(metricsScript, &m)); err != nil {
		return metrics{}, fmt.Errorf("read viewport metrics: %w", err)
	}
	return m, nil
}

func (c *Chrome) CaptureViewport(ctx context.Context) (*image.RGBA, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return cv.ToRGBA(img), nil
}

func (c *Chrome) ViewportSize(ctx context.Context) (int, int, error) {
	m, err := c.metrics(ctx)
	if err != nil {
		return 0, 0, err
	}
	return m.Width, m.Height, nil
}

func (c *Chrome) DevicePixelRatio(ctx context.Context) (float64, error) {
	m, err := c.metrics(ctx)
	if err != nil {
		return 0, err
	}
	return m.DPR, nil
}

// ScrollBy scrolls the window. Page scrolls are instant, so duration is unused.
func (c *Chrome) ScrollBy(ctx context.Context, distance int, duration time.Duration) error {
	return c.run(ctx, chromedp.Evaluate(scrollByScript(distance), nil))
}

func (c *Chrome) ScrollToEdge(ctx context.Context, edge Edge) error {
	return c.run(ctx, chromedp.Evaluate(scrollToEdgeScript(edge), nil))
}

// Close closes the tab and the browser
func (c *Chrome) Close() error {
	c.tabCancel()
	c.allocCancel()
	return nil
}

func scrollByScript(distance int) string {
	return fmt.Sprintf(`window.scrollBy({top: %d, left: 0, behavior: "instant"})`, distance)
}

func scrollToEdgeScript(edge Edge) string {
	if edge == EdgeBottom {
		return `window.scrollTo({top: document.documentElement.scrollHeight, left: 0, behavior: "instant"})`
	}
	return `window.scrollTo({top: 0, left: 0, behavior: "instant"})`
}

// findChrome returns the path to a Chrome/Chromium binary, preferring
// non-snap installations
func findChrome(preferred string) string {
	if preferred != "" {
		return preferred
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}

	candidates := []string{
		"google-chrome-stable",
		"google-chrome",
		"chromium-browser",
		"chromium",
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			if strings.HasPrefix(path, "/snap") {
				continue
			}
			return path
		}
	}

	return ""
}
