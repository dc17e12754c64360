// Package evasion builds the per-session browser identity and the request
// policy applied to every page a retrieval attempt opens.
package evasion

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// DefaultUserAgents is the built-in identity pool.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Android 13; Mobile; rv:109.0) Gecko/111.0 Firefox/111.0",
}

// mobileMarkers identify a handheld platform inside a user agent.
var mobileMarkers = []string{"iPhone", "iPad", "Android", "Mobile"}

// Viewport is the emulated screen.
type Viewport struct {
	Width       int
	Height      int
	Mobile      bool
	ScaleFactor float64
}

// Profile is the identity one browser session presents. It is built once
// per attempt and never modified afterwards.
type Profile struct {
	UserAgent string
	Viewport  Viewport
	Headers   map[string]string
	Overrides []string
}

// Class restricts identity selection to a viewport kind.
type Class int

const (
	ClassAny Class = iota
	ClassDesktop
	ClassMobile
)

func (c Class) String() string {
	switch c {
	case ClassDesktop:
		return "desktop"
	case ClassMobile:
		return "mobile"
	default:
		return "any"
	}
}

// ParseClass maps "any", "desktop" and "mobile" (or empty, meaning any).
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return ClassAny, nil
	case "desktop":
		return ClassDesktop, nil
	case "mobile":
		return ClassMobile, nil
	default:
		return ClassAny, fmt.Errorf("unknown viewport class %q", s)
	}
}

// IsMobileIdentity reports whether ua names a handheld platform.
func IsMobileIdentity(ua string) bool {
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// ViewportFor derives the screen from the identity string.
func ViewportFor(ua string) Viewport {
	switch {
	case strings.Contains(ua, "iPhone"):
		return Viewport{Width: 375, Height: 812, Mobile: true, ScaleFactor: 2}
	case strings.Contains(ua, "iPad"):
		return Viewport{Width: 768, Height: 1024, Mobile: true, ScaleFactor: 2}
	case IsMobileIdentity(ua):
		return Viewport{Width: 414, Height: 896, Mobile: true, ScaleFactor: 2}
	default:
		return Viewport{Width: 1366, Height: 768, Mobile: false, ScaleFactor: 1}
	}
}

// DefaultHeaders returns a fresh copy of the extra request headers sent
// with every navigation.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept-Language":           "es-ES,es;q=0.9,en;q=0.8",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-User":            "?1",
		"Sec-Fetch-Dest":            "document",
	}
}

// ProfileFor builds the complete profile for a given identity. The result
// depends only on ua.
func ProfileFor(ua string) Profile {
	return Profile{
		UserAgent: ua,
		Viewport:  ViewportFor(ua),
		Headers:   DefaultHeaders(),
		Overrides: []string{NavigatorOverrides},
	}
}

// Generator picks identities from a pool. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	agents []string
}

// NewGenerator returns a Generator over the default pool plus extra.
func NewGenerator(extra []string) *Generator {
	return newGenerator(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), extra)
}

// NewSeededGenerator returns a reproducible Generator.
func NewSeededGenerator(seed uint64, extra []string) *Generator {
	return newGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), extra)
}

func newGenerator(rng *rand.Rand, extra []string) *Generator {
	agents := make([]string, 0, len(DefaultUserAgents)+len(extra))
	agents = append(agents, DefaultUserAgents...)
	for _, ua := range extra {
		if ua = strings.TrimSpace(ua); ua != "" {
			agents = append(agents, ua)
		}
	}
	return &Generator{rng: rng, agents: agents}
}

// Agents returns a copy of the pool.
func (g *Generator) Agents() []string {
	return append([]string(nil), g.agents...)
}

// Generate picks uniformly from the whole pool.
func (g *Generator) Generate() Profile {
	return g.GenerateClass(ClassAny)
}

// GenerateClass picks uniformly among identities of class c, falling back
// to the whole pool when none qualify.
func (g *Generator) GenerateClass(c Class) Profile {
	candidates := g.agents
	if c != ClassAny {
		wantMobile := c == ClassMobile
		filtered := make([]string, 0, len(g.agents))
		for _, ua := range g.agents {
			if IsMobileIdentity(ua) == wantMobile {
				filtered = append(filtered, ua)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	g.mu.Lock()
	i := g.rng.IntN(len(candidates))
	g.mu.Unlock()

	return ProfileFor(candidates[i])
}
