package player

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bikinibottom/spongeplay/internal/httputil"
	"github.com/bikinibottom/spongeplay/internal/parser"
	"github.com/bikinibottom/spongeplay/internal/validate"
)

type playPageData struct {
	Nonce    string
	Parsers  []parser.Parser
	Selected string
	URL      string
	Playback *parser.Playback
	Error    string
}

var playPageTemplate = template.Must(template.New("play").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{if .Playback}}正在播放 · {{.Playback.Parser.Label}}{{else}}海绵宝宝视频播放器{{end}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { background: #fff9c4; color: #3e2723; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
        form { display: flex; gap: 8px; padding: 12px; background: #ffeb3b; flex-wrap: wrap; }
        input[type=url] { flex: 1; min-width: 240px; padding: 8px; border: 2px solid #8d6e63; border-radius: 8px; }
        select, button { padding: 8px 12px; border-radius: 8px; border: 2px solid #8d6e63; background: #fff; }
        button { background: #ff9800; color: #fff; font-weight: 600; cursor: pointer; }
        .note, .error { padding: 8px 12px; font-size: 14px; }
        .note { background: #e3f2fd; }
        .error { background: #ffcdd2; }
        .frame { width: 100%; height: calc(100vh - 120px); min-height: 360px; border: 0; background: #000; }
    </style>
</head>
<body>
    <form method="get" action="/play">
        <input type="url" name="url" value="{{.URL}}" placeholder="粘贴视频链接" required>
        <select name="parser">
            {{range .Parsers}}<option value="{{.ID}}"{{if eq .ID $.Selected}} selected{{end}}>{{.Label}}</option>
            {{end}}
        </select>
        <button type="submit">播放</button>
    </form>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    {{with .Playback}}
    {{if .Note}}<div class="note">{{.Note}}</div>{{end}}
    <iframe class="frame" src="{{.PlayURL}}" allowfullscreen referrerpolicy="no-referrer"
            sandbox="allow-scripts allow-same-origin allow-presentation"></iframe>
    {{end}}
</body>
</html>`))

// PlayPage renders the picker and, when a URL is given, frames the composed
// parser URL. Only the registry's hosts may be framed.
func (h *Handler) PlayPage(w http.ResponseWriter, r *http.Request) {
	nonce := httputil.NonceFromContext(r.Context())
	if nonce == "" {
		nonce = httputil.GenerateNonce()
	}
	q := r.URL.Query()
	data := playPageData{
		Nonce:    nonce,
		Parsers:  h.registry.All(),
		Selected: strings.TrimSpace(q.Get("parser")),
		URL:      strings.TrimSpace(q.Get("url")),
	}
	if data.Selected == "" {
		data.Selected = h.registry.Default().ID
	}

	status := http.StatusOK
	if data.URL != "" {
		if msg := validate.VideoURL(data.URL); msg != "" {
			status, data.Error = http.StatusBadRequest, msg
		} else if pb, err := h.registry.Play(data.Selected, data.URL); err != nil {
			status, data.Error = http.StatusBadRequest, playErrorMessage(err)
		} else {
			data.Playback = &pb
			data.Selected = pb.Parser.ID
		}
	}

	w.Header().Set("Content-Security-Policy", h.pagePolicy(nonce))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := playPageTemplate.Execute(w, data); err != nil {
		slog.Error("player: failed to render play page", "error", err)
	}
}

func (h *Handler) pagePolicy(nonce string) string {
	return fmt.Sprintf(
		"default-src 'self'; style-src 'self' 'nonce-%s'; script-src 'self' 'nonce-%s'; frame-src %s; form-action 'self'; frame-ancestors 'self';",
		nonce, nonce, strings.Join(h.registry.Hosts(), " "),
	)
}

func playErrorMessage(err error) string {
	if errors.Is(err, parser.ErrUnknownParser) {
		return "未知的解析器"
	}
	return "无法生成播放地址"
}
