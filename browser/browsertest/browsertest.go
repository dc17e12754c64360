// Package browsertest provides in-memory browser fakes for tests.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/shelfscout/browser"
	"github.com/use-agent/shelfscout/evasion"
)

// Element records the interactions performed on it.
type Element struct {
	mu sync.Mutex

	ClickErr error
	TypeErr  error

	Clicks int
	Typed  []rune
	Enters int
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	return nil
}

func (e *Element) TypeRune(ctx context.Context, r rune) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.Typed = append(e.Typed, r)
	return nil
}

func (e *Element) PressEnter(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Enters++
	return nil
}

// Text returns everything typed into the element.
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.Typed)
}

// Page is a scriptable browser.Page. Elements present on the page are
// keyed by probe; OnNavigate and OnReload may rewrite page state.
type Page struct {
	mu sync.Mutex

	Elements map[browser.Probe]*Element
	FindErrs map[browser.Probe]error
	Cards    map[string][]string
	Body     string

	OnNavigate func(p *Page, url string) error
	OnReload   func(p *Page) error

	CardsErr      error
	ScreenshotErr error

	Navigations []string
	Reloads     int
	Scrolls     []int
	Screenshots int
	Probed      []browser.Probe
}

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{
		Elements: make(map[browser.Probe]*Element),
		FindErrs: make(map[browser.Probe]error),
		Cards:    make(map[string][]string),
	}
}

// Add places a fresh element matching probe on the page and returns it.
func (p *Page) Add(probe browser.Probe) *Element {
	el := &Element{}
	p.Elements[probe] = el
	return el
}

// Remove takes the element matching probe off the page.
func (p *Page) Remove(probe browser.Probe) {
	delete(p.Elements, probe)
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	hook := p.OnNavigate
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(p, url)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	p.Reloads++
	hook := p.OnReload
	p.mu.Unlock()

	if hook != nil {
		return hook(p)
	}
	return nil
}

func (p *Page) Find(ctx context.Context, probe browser.Probe) (browser.Element, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Probed = append(p.Probed, probe)
	if err := p.FindErrs[probe]; err != nil {
		return nil, false, err
	}
	el, ok := p.Elements[probe]
	if !ok {
		return nil, false, nil
	}
	return el, true, nil
}

func (p *Page) OuterHTMLAll(ctx context.Context, selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CardsErr != nil {
		return nil, p.CardsErr
	}
	return append([]string(nil), p.Cards[selector]...), nil
}

func (p *Page) ScrollTo(ctx context.Context, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls = append(p.Scrolls, y)
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Screenshots++
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Body, nil
}

// Session wraps a Page and counts closes.
type Session struct {
	mu     sync.Mutex
	page   *Page
	closed int
}

func (s *Session) Page() browser.Page { return s.page }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Closed reports how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher hands out sessions built by NewPage, one per Launch call.
type Launcher struct {
	mu sync.Mutex

	// NewPage builds the page for the n-th launch (zero-based). A non-nil
	// error fails the launch.
	NewPage func(n int, profile evasion.Profile) (*Page, error)

	Profiles []evasion.Profile
	Sessions []*Session
}

func (l *Launcher) Launch(ctx context.Context, profile evasion.Profile) (browser.Session, error) {
	l.mu.Lock()
	n := len(l.Profiles)
	l.Profiles = append(l.Profiles, profile)
	l.mu.Unlock()

	page := NewPage()
	if l.NewPage != nil {
		var err error
		if page, err = l.NewPage(n, profile); err != nil {
			return nil, err
		}
	}

	s := &Session{page: page}
	l.mu.Lock()
	l.Sessions = append(l.Sessions, s)
	l.mu.Unlock()
	return s, nil
}
