// Package normalize rewrites mobile and non-canonical video-site links into the
// desktop form third-party parsers expect.
package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Result is the outcome of normalizing one URL. An empty Note means no rule fired.
type Result struct {
	URL     string `json:"url"`
	Note    string `json:"note,omitempty"`
	Family  string `json:"family,omitempty"`
	Changed bool   `json:"changed"`
}

// rule returns the rewritten URL and a note, or ok=false when it does not apply.
type rule func(raw string, u *url.URL) (rewritten, note string, ok bool)

// family groups the rules of one video site. Families are keyed by registrable
// domain, so a host belongs to at most one of them.
type family struct {
	Name   string
	Domain string
	rules  []rule
}

var (
	vidQueryRe  = regexp.MustCompile(`vid=([0-9A-Za-z]+)`)
	vidRe       = regexp.MustCompile(`^[0-9A-Za-z]+$`)
	episodePath = regexp.MustCompile(`/bangumi/(?:play|media)/ep(\d+)`)
)

var families = []family{
	{
		Name:   "Tencent Video",
		Domain: "qq.com",
		rules:  []rule{coverPage("v.qq.com")},
	},
	{
		Name:   "iQIYI",
		Domain: "iqiyi.com",
		rules:  []rule{desktopHost("m.iqiyi.com", "www.iqiyi.com")},
	},
	{
		Name:   "Youku",
		Domain: "youku.com",
		rules:  []rule{desktopHost("m.youku.com", "v.youku.com")},
	},
	{
		Name:   "Bilibili",
		Domain: "bilibili.com",
		rules: []rule{
			desktopHost("m.bilibili.com", "www.bilibili.com"),
			episode("www.bilibili.com", "bangumi/play"),
		},
	},
}

// Families returns the display names of the supported site families.
func Families() []string {
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.Name)
	}
	return names
}

// Normalize applies the first matching rule of the family the URL's host
// belongs to. Surrounding whitespace is ignored for matching, but URLs outside
// every family, or that no rule changes, are returned exactly as given with an
// empty note.
func Normalize(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}
	}

	candidate, u, ok := parse(trimmed)
	if !ok {
		return Result{URL: raw}
	}

	f, ok := familyFor(u.Hostname())
	if !ok {
		return Result{URL: raw}
	}

	for _, r := range f.rules {
		rewritten, note, ok := r(candidate, u)
		if !ok {
			continue
		}
		if rewritten == candidate {
			break
		}
		return Result{URL: rewritten, Note: note, Family: f.Name, Changed: true}
	}

	return Result{URL: raw, Family: f.Name}
}

// parse accepts scheme-less input such as "m.iqiyi.com/v/1.html" by assuming
// https. The returned string is the input with that scheme applied.
func parse(raw string) (string, *url.URL, bool) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return "", nil, false
	}
	return candidate, u, true
}

func familyFor(host string) (family, bool) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return family{}, false
	}
	for _, f := range families {
		if f.Domain == domain {
			return f, true
		}
	}
	return family{}, false
}

// coverPage turns any link on the video host that carries a vid into the
// canonical cover page. The raw-string search covers truncated queries where
// the "?vid=" delimiter is missing.
func coverPage(domain string) rule {
	return func(raw string, u *url.URL) (string, string, bool) {
		if !strings.Contains(strings.ToLower(u.Hostname()), domain) {
			return "", "", false
		}

		vid := u.Query().Get("vid")
		if !vidRe.MatchString(vid) {
			vid = ""
			if m := vidQueryRe.FindStringSubmatch(raw); len(m) > 1 {
				vid = m[1]
			}
		}
		if vid == "" {
			return "", "", false
		}

		rewritten := fmt.Sprintf("https://%s/x/cover/%s.html", domain, vid)
		return rewritten, fmt.Sprintf("converted to cover page for video id %s", vid), true
	}
}

// desktopHost swaps the mobile host for the desktop one. Only the host component
// changes; every other byte of the input, port included, is kept as written.
func desktopHost(mobile, desktop string) rule {
	return func(raw string, u *url.URL) (string, string, bool) {
		host := strings.ToLower(u.Hostname())
		if host != mobile && !strings.HasSuffix(host, "."+mobile) {
			return "", "", false
		}

		rewritten := replaceHost(raw, strings.TrimSuffix(host, mobile)+desktop)
		return rewritten, fmt.Sprintf("converted mobile link %s to desktop %s", mobile, desktop), true
	}
}

// replaceHost splices hostname into raw in place of its host, leaving the
// scheme, userinfo, port, path, query and fragment untouched.
func replaceHost(raw, hostname string) string {
	start := 0
	if i := strings.Index(raw, "://"); i >= 0 {
		start = i + len("://")
	}
	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}
	if i := strings.LastIndex(raw[start:end], "@"); i >= 0 {
		start += i + 1
	}
	hostEnd := end
	if i := strings.LastIndex(raw[start:end], ":"); i >= 0 {
		hostEnd = start + i
	}
	return raw[:start] + hostname + raw[hostEnd:]
}

// episode rewrites episodic play pages to their canonical path, dropping
// tracking queries and fragments.
func episode(domain, section string) rule {
	return func(raw string, u *url.URL) (string, string, bool) {
		m := episodePath.FindStringSubmatch(u.EscapedPath())
		if len(m) < 2 {
			return "", "", false
		}
		rewritten := fmt.Sprintf("https://%s/%s/ep%s", domain, section, m[1])
		return rewritten, fmt.Sprintf("converted to canonical episode page ep%s", m[1]), true
	}
}
