// Package parser holds the built-in registry of third-party parser endpoints and
// composes playback URLs from them.
package parser

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bikinibottom/spongeplay/internal/normalize"
	"github.com/pelletier/go-toml/v2"
)

var (
	ErrEmptyURL      = errors.New("video url is required")
	ErrUnknownParser = errors.New("unknown parser")
)

//go:embed parsers.toml
var registryTOML []byte

// Parser is one third-party endpoint. The encoded video URL is appended to Prefix.
type Parser struct {
	ID     string `toml:"id" json:"id"`
	Label  string `toml:"label" json:"label"`
	Prefix string `toml:"prefix" json:"prefix"`
}

// Host returns the scheme and host of the endpoint, used for frame-src policies.
func (p Parser) Host() string {
	u, err := url.Parse(p.Prefix)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Registry is an ordered, immutable set of parsers. The first one is the default.
type Registry struct {
	parsers []Parser
}

// Builtin is the registry compiled into the binary.
var Builtin = mustLoad(registryTOML)

func mustLoad(data []byte) *Registry {
	r, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("parser: invalid built-in registry: %v", err))
	}
	return r
}

// Load decodes a registry document.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Parser []Parser `toml:"parser"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if len(doc.Parser) == 0 {
		return nil, errors.New("registry has no parsers")
	}

	seen := make(map[string]bool, len(doc.Parser))
	for i, p := range doc.Parser {
		if p.ID == "" || p.Prefix == "" {
			return nil, fmt.Errorf("parser %d: id and prefix are required", i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("parser %d: duplicate id %q", i+1, p.ID)
		}
		seen[p.ID] = true
		if p.Label == "" {
			doc.Parser[i].Label = p.ID
		}
	}
	return &Registry{parsers: doc.Parser}, nil
}

// All returns a copy of the parsers in registry order.
func (r *Registry) All() []Parser {
	out := make([]Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

func (r *Registry) Default() Parser {
	return r.parsers[0]
}

// Lookup finds a parser by id or display label. An empty key selects the default.
func (r *Registry) Lookup(key string) (Parser, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return r.Default(), true
	}
	for _, p := range r.parsers {
		if p.ID == key || p.Label == key {
			return p, true
		}
	}
	return Parser{}, false
}

// Hosts returns the distinct endpoint origins.
func (r *Registry) Hosts() []string {
	seen := make(map[string]bool, len(r.parsers))
	var hosts []string
	for _, p := range r.parsers {
		h := p.Host()
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		hosts = append(hosts, h)
	}
	return hosts
}

// Playback is a composed playback request.
type Playback struct {
	Parser        Parser `json:"parser"`
	SourceURL     string `json:"sourceUrl"`
	NormalizedURL string `json:"normalizedUrl"`
	Note          string `json:"note,omitempty"`
	PlayURL       string `json:"playUrl"`
}

// Play normalizes rawURL and appends it to the selected parser's prefix.
func (r *Registry) Play(parserKey, rawURL string) (Playback, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Playback{}, ErrEmptyURL
	}

	p, ok := r.Lookup(parserKey)
	if !ok {
		return Playback{}, fmt.Errorf("%w: %q", ErrUnknownParser, parserKey)
	}

	res := normalize.Normalize(rawURL)
	return Playback{
		Parser:        p,
		SourceURL:     rawURL,
		NormalizedURL: res.URL,
		Note:          res.Note,
		PlayURL:       Compose(p.Prefix, res.URL),
	}, nil
}

// Compose appends the fully percent-encoded video URL to prefix.
func Compose(prefix, videoURL string) string {
	return prefix + Quote(videoURL, "")
}
