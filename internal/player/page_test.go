package player

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bikinibottom/spongeplay/internal/httputil"
)

func renderPlayPage(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/play"+query, nil)
	req = req.WithContext(httputil.ContextWithNonce(req.Context(), "test-nonce"))
	rec := httptest.NewRecorder()
	newTestHandler().PlayPage(rec, req)
	return rec
}

func TestPlayPageWithoutURLRendersForm(t *testing.T) {
	rec := renderPlayPage(t, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<iframe") {
		t.Error("no iframe expected without a url")
	}
	if !strings.Contains(body, `<option value="default" selected>`) {
		t.Error("default parser should be preselected")
	}
	if !strings.Contains(body, `<style nonce="test-nonce">`) {
		t.Error("inline style should carry the request nonce")
	}
}

func TestPlayPageFramesComposedURL(t *testing.T) {
	q := "?parser=patrick&url=" + url.QueryEscape("https://v.qq.com/x/cover/abc.html")
	rec := renderPlayPage(t, q)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	want := `src="https://jx.jsonplayer.com/player/?url=https%3a%2f%2fv.qq.com%2fx%2fcover%2fabc.html"`
	if !strings.Contains(strings.ToLower(body), strings.ToLower(want)) {
		t.Errorf("iframe src missing, body:\n%s", body)
	}
	if !strings.Contains(body, `<option value="patrick" selected>`) {
		t.Error("selected parser should stay selected")
	}
}

func TestPlayPageShowsRewriteNote(t *testing.T) {
	q := "?url=" + url.QueryEscape("https://m.v.qq.com/x/m/play?vid=123")
	rec := renderPlayPage(t, q)

	if !strings.Contains(rec.Body.String(), `class="note"`) {
		t.Error("expected the rewrite note to be shown")
	}
}

func TestPlayPageUnknownParser(t *testing.T) {
	q := "?parser=gary&url=" + url.QueryEscape("https://v.qq.com/x/cover/abc.html")
	rec := renderPlayPage(t, q)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<iframe") {
		t.Error("no iframe expected for an unknown parser")
	}
	if !strings.Contains(body, `class="error"`) {
		t.Error("expected an error message")
	}
}

func TestPlayPagePolicyAllowsParserHosts(t *testing.T) {
	rec := renderPlayPage(t, "")

	csp := rec.Header().Get("Content-Security-Policy")
	for _, host := range newTestHandler().registry.Hosts() {
		if !strings.Contains(csp, host) {
			t.Errorf("CSP frame-src missing %s: %q", host, csp)
		}
	}
	if !strings.Contains(csp, "'nonce-test-nonce'") {
		t.Errorf("CSP should allow the nonce, got %q", csp)
	}
}
