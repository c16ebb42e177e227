package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func validToken(id int64) string { return fmt.Sprintf("valid-%d", id) }

type harness struct {
	users   *fakeUsers
	mailer  *fakeMailer
	assets  *fakeAssets
	public  *fakeAssets
	handler http.Handler
}

func newHarness() *harness {
	h := &harness{users: newFakeUsers(), mailer: &fakeMailer{}, assets: &fakeAssets{}, public: &fakeAssets{}}
	srv := NewServer(h.users, h.mailer, h.assets, h.public, prometheus.NewRegistry(), "Acme", logging.Nop{})
	h.handler = srv.Handler()
	return h
}

func sessionFor(id int64) *http.Cookie {
	return &http.Cookie{
		Name:  common.SessionCookieName,
		Value: (&services.SessionToken{UserID: id, Token: validToken(id)}).Encode(),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func findCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			return c
		}
	}
	return nil
}
