package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// Strategy is one way of identifying a target element. Exactly one of CSS,
// XPath, or CSS+Text is set.
type Strategy struct {
	Name  string
	CSS   string
	XPath string
	Text  string // js regex matched against the text of CSS candidates
}

func CSS(name, sel string) Strategy { return Strategy{Name: name, CSS: sel} }

func XPath(name, xp string) Strategy { return Strategy{Name: name, XPath: xp} }

// ByText matches elements selected by sel whose visible text matches the
// regex re. Keep patterns tolerant: "Check ?out" rather than exact text.
func ByText(name, sel, re string) Strategy {
	return Strategy{Name: name, CSS: sel, Text: re}
}

// Locator is a small ranked list of strategies for one target, tried in
// order; the first match wins.
type Locator struct {
	Target     string
	Strategies []Strategy
}

func Target(name string, strategies ...Strategy) Locator {
	return Locator{Target: name, Strategies: strategies}
}

// NotFoundError aggregates every strategy that failed to locate a target.
// Best-effort identification against an unstable schema: a NotFoundError
// is ordinary "not there" information, not a structural fault.
type NotFoundError struct {
	Target string
	Tried  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (tried %s)", e.Target, strings.Join(e.Tried, ", "))
}

// prober abstracts one strategy probe so the ladder logic is testable
// without a live page.
type prober interface {
	probe(s Strategy) (*rod.Element, bool, error)
}

func findOnce(p prober, loc Locator) (*rod.Element, error) {
	tried := make([]string, 0, len(loc.Strategies))
	for _, s := range loc.Strategies {
		el, ok, err := p.probe(s)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		if ok {
			return el, nil
		}
		tried = append(tried, s.Name)
	}
	return nil, &NotFoundError{Target: loc.Target, Tried: tried}
}

func (b *Browser) probe(s Strategy) (*rod.Element, bool, error) {
	switch {
	case s.XPath != "":
		return has3(b.page.HasX(s.XPath))
	case s.Text != "":
		return has3(b.page.HasR(s.CSS, s.Text))
	default:
		return has3(b.page.Has(s.CSS))
	}
}

func has3(ok bool, el *rod.Element, err error) (*rod.Element, bool, error) {
	return el, ok, err
}

// Find runs the locator ladder once against the current page state.
func (b *Browser) Find(loc Locator) (*rod.Element, error) {
	return findOnce(b, loc)
}

// WaitFind polls the locator ladder until a strategy matches, bounded by
// the configured timeout. The last aggregated NotFoundError is returned on
// expiry.
func (b *Browser) WaitFind(ctx context.Context, loc Locator) (*rod.Element, error) {
	deadline := time.Now().Add(b.timeout)
	var last error
	for {
		el, err := findOnce(b, loc)
		if err == nil {
			return el, nil
		}
		last = err
		if !time.Now().Before(deadline) {
			return nil, last
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
