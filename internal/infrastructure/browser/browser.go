// Package browser wraps a headless Chromium instance behind the small set
// of primitives the booking stages need: navigation, bounded condition
// waits, and ranked-fallback element lookup.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const pollInterval = 250 * time.Millisecond

type Options struct {
	Headless bool

	// Timeout bounds every condition wait. Past it the operation fails
	// rather than hanging.
	Timeout time.Duration

	// Settle is the short delay used after actions whose completion has no
	// observable marker (post-click page transitions). Last resort only;
	// never the primary synchronization mechanism.
	Settle time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Settle <= 0 {
		o.Settle = 2 * time.Second
	}
	return o
}

// Browser is one scoped browser context: acquired at session start,
// released exactly once via Close.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	timeout time.Duration
	settle  time.Duration
}

func Launch(opts Options) (*Browser, error) {
	opts = opts.withDefaults()

	l := launcher.New().
		Headless(opts.Headless).
		Leakless(true).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Browser{
		launcher: l,
		browser:  b,
		page:     page,
		timeout:  opts.Timeout,
		settle:   opts.Settle,
	}, nil
}

// Close releases the page, the browser connection and the underlying
// chromium process.
func (b *Browser) Close() error {
	var first error
	if b.page != nil {
		if err := b.page.Close(); err != nil && first == nil {
			first = err
		}
		b.page = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil && first == nil {
			first = err
		}
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return first
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx).Timeout(b.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (b *Browser) URL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// WaitFor polls cond until it reports true, bounded by the configured
// timeout. Reports whether cond became true before expiry.
func (b *Browser) WaitFor(ctx context.Context, cond func() bool) bool {
	deadline := time.Now().Add(b.timeout)
	for {
		if cond() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}

// Settle sleeps the configured settle delay.
func (b *Browser) Settle() {
	time.Sleep(b.settle)
}

// Fill clears an input element and types value into it.
func (b *Browser) Fill(el *rod.Element, value string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

// Click waits for the element to become interactable, bounded by the
// configured timeout, then left-clicks it.
func (b *Browser) Click(el *rod.Element) error {
	if _, err := el.Timeout(b.timeout).WaitInteractable(); err != nil {
		return fmt.Errorf("element never became interactable: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// SetValue forces value onto an input that does not accept keystrokes
// reliably: the value is written directly, change and input notifications
// are synthesized for the surrounding UI, and Enter is pressed as a
// redundant trigger.
func (b *Browser) SetValue(el *rod.Element, value string) error {
	_, err := el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('change', { bubbles: true }));
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`, value)
	if err != nil {
		return fmt.Errorf("force value: %w", err)
	}
	return el.Type(input.Enter)
}
