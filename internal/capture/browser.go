package capture

import (
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// BrowserOptions configure the headless browser.
type BrowserOptions struct {
	ExecPath    string
	Headless    bool
	Width       int
	Height      int
	PageTimeout time.Duration
}

func (o BrowserOptions) withDefaults() BrowserOptions {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 2000
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = 45 * time.Second
	}
	return o
}

// AllocatorOptions returns chromedp allocator options that keep X.com from
// treating the browser as automation.
func AllocatorOptions(o BrowserOptions) []chromedp.ExecAllocatorOption {
	o = o.withDefaults()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(o.Width, o.Height),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if o.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}
