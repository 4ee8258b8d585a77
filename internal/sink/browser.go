package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jgoulah/energygoal/internal/widget"
)

const defaultBrowserTimeout = 30 * time.Second

const replaceScript = `(function(id, html) {
	var el = document.getElementById(id);
	if (!el) { return false; }
	el.innerHTML = html;
	return true;
})(%s, %s)`

const existsScript = `document.getElementById(%s) !== null`

// BrowserOptions configures the headless browser behind a Browser sink
type BrowserOptions struct {
	Visible bool          // Show the browser window (for debugging)
	Timeout time.Duration // Per-operation timeout, default 30s
}

// Browser writes into elements of a page loaded in Chrome, exactly as a
// script on the page would through document.getElementById.
type Browser struct {
	ctx     context.Context
	cancels []context.CancelFunc
	timeout time.Duration
}

// NewBrowser starts Chrome and loads pageURL
func NewBrowser(parent context.Context, pageURL string, opts BrowserOptions) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Visible),
		chromedp.Flag("no-sandbox", true),            // Required for running as root on Linux
		chromedp.Flag("disable-gpu", true),           // Recommended for headless Linux
		chromedp.Flag("disable-dev-shm-usage", true), // Avoid /dev/shm issues on Linux
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	b := &Browser{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		timeout: opts.Timeout,
	}
	if b.timeout <= 0 {
		b.timeout = defaultBrowserTimeout
	}

	// Start the browser on the long-lived context so per-call timeouts
	// only bound the actions, not the browser itself
	if err := chromedp.Run(browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	// Bypass the cache so stoplight images and page scripts are current
	if err := b.run(parent,
		network.Enable(),
		network.SetCacheDisabled(true),
		chromedp.Navigate(pageURL),
	); err != nil {
		b.Close()
		return nil, fmt.Errorf("loading %s: %w", pageURL, err)
	}

	return b, nil
}

// Replace sets the innerHTML of the element with the given id
func (b *Browser) Replace(ctx context.Context, id string, content template.HTML) error {
	idJSON, err := json.Marshal(id)
	if err != nil {
		return err
	}
	htmlJSON, err := json.Marshal(string(content))
	if err != nil {
		return err
	}

	var found bool
	script := fmt.Sprintf(replaceScript, idJSON, htmlJSON)
	if err := b.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("updating element #%s: %w", id, err)
	}
	if !found {
		return fmt.Errorf("element #%s: %w", id, widget.ErrSinkNotFound)
	}
	return nil
}

// Content returns the innerHTML of the element with the given id
func (b *Browser) Content(ctx context.Context, id string) (string, error) {
	if err := b.exists(ctx, id); err != nil {
		return "", err
	}
	var html string
	if err := b.run(ctx, chromedp.InnerHTML("#"+id, &html, chromedp.ByID)); err != nil {
		return "", fmt.Errorf("reading element #%s: %w", id, err)
	}
	return html, nil
}

// Screenshot captures a PNG of the element with the given id
func (b *Browser) Screenshot(ctx context.Context, id string) ([]byte, error) {
	if err := b.exists(ctx, id); err != nil {
		return nil, err
	}
	var buf []byte
	if err := b.run(ctx, chromedp.Screenshot("#"+id, &buf, chromedp.ByID)); err != nil {
		return nil, fmt.Errorf("capturing element #%s: %w", id, err)
	}
	return buf, nil
}

// DocumentHTML returns the serialized page
func (b *Browser) DocumentHTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return html, nil
}

// Close shuts the browser down
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}

func (b *Browser) exists(ctx context.Context, id string) error {
	idJSON, err := json.Marshal(id)
	if err != nil {
		return err
	}
	var found bool
	if err := b.run(ctx, chromedp.Evaluate(fmt.Sprintf(existsScript, idJSON), &found)); err != nil {
		return fmt.Errorf("looking up element #%s: %w", id, err)
	}
	if !found {
		return fmt.Errorf("element #%s: %w", id, widget.ErrSinkNotFound)
	}
	return nil
}

// run executes actions in the browser, bounded by the sink timeout and by ctx
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
