package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apilogdomain "github.com/DragaoTI/auth-service/internal/apilog/domain"
	"github.com/DragaoTI/auth-service/internal/security"
)

type captureRecorder struct {
	entries []*apilogdomain.Entry
}

func (c *captureRecorder) Record(e *apilogdomain.Entry) {
	c.entries = append(c.entries, e)
}

func TestRequestLog_RecordsEntry(t *testing.T) {
	codec := security.NewTestCodec(t)
	rec := &captureRecorder{}

	h := RequestLog(codec, rec, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "198.51.100.4:12345"
	r.Header.Set("User-Agent", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if len(rec.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Method != "POST" || e.Path != "/auth/login" || e.StatusCode != http.StatusTeapot {
		t.Errorf("entry = %+v", e)
	}
	if e.ClientHost != "198.51.100.4" {
		t.Errorf("client host = %q", e.ClientHost)
	}
	if e.UserAgent != "test-agent" {
		t.Errorf("user agent = %q", e.UserAgent)
	}
}

func TestRequestLog_AttributesBearerSubject(t *testing.T) {
	codec := security.NewTestCodec(t)
	userTok, _, _ := codec.Issue(security.KindAccess, "user-1", "user", time.Minute)
	adminTok, _, _ := codec.Issue(security.KindAdminAccess, "adm-1", "", time.Minute)

	for name, tc := range map[string]struct {
		token             string
		wantUser, wantAdm string
	}{
		"user token":  {userTok, "user-1", ""},
		"admin token": {adminTok, "", "adm-1"},
		"no token":    {"", "", ""},
	} {
		rec := &captureRecorder{}
		h := RequestLog(codec, rec, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		if tc.token != "" {
			r.Header.Set("Authorization", "Bearer "+tc.token)
		}
		h.ServeHTTP(httptest.NewRecorder(), r)

		e := rec.entries[0]
		if e.UserID != tc.wantUser || e.AdminID != tc.wantAdm {
			t.Errorf("%s: user=%q admin=%q, want user=%q admin=%q",
				name, e.UserID, e.AdminID, tc.wantUser, tc.wantAdm)
		}
	}
}

func TestRequestLog_DefaultStatusIs200(t *testing.T) {
	rec := &captureRecorder{}
	h := RequestLog(nil, rec, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Never calls WriteHeader.
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.entries[0].StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.entries[0].StatusCode)
	}
}
