package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/rescue-triage-service/internal/adapter/http"
	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/couchcryptid/rescue-triage-service/internal/dashboard"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
	"github.com/couchcryptid/rescue-triage-service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fixedSnapshots struct{ snap pipeline.Snapshot }

func (f fixedSnapshots) Snapshot(context.Context) pipeline.Snapshot { return f.snap }
func (f fixedSnapshots) Refresh(context.Context) pipeline.Snapshot  { return f.snap }

func testSnapshot() pipeline.Snapshot {
	return pipeline.Snapshot{
		Status:   roster.StatusOK,
		Provider: "local",
		Individuals: []domain.Individual{
			{ID: "101", Lat: 40.64, Lon: 22.94, Present: true, RiskCategory: domain.Critical, UrgencyScore: 90, Attributes: map[string]any{"fullname": "Eleni Papadopoulou"}},
			{ID: "102", Lat: 40.65, Lon: 22.95, Present: true, RiskCategory: domain.Low, UrgencyScore: 20, Attributes: map[string]any{"fullname": "Nikos Georgiou"}},
		},
	}
}

func newTestServer(readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := session.NewRegistry(domain.Coordinates{Lat: 40.6401, Lon: 22.9444}, 10, observability.NewMetricsForTesting())
	svc := dashboard.NewService(fixedSnapshots{snap: testSnapshot()}, registry, chat.CannedResponder{}, dashboard.Options{
		Rescuer:     domain.Coordinates{Lat: 38.041785, Lon: 23.995306},
		FocusZoom:   16,
		ContextTopN: 5,
	}, logger)
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, []string{"http://localhost:5173"}, logger)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv http.Handler) dashboard.Dashboard {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	require.NotEmpty(t, d.SessionID)
	return d
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSessionRoundTrip(t *testing.T) {
	srv := newTestServer(nil)
	d := createSession(t, srv)
	assert.Equal(t, roster.StatusOK, d.Status)
	assert.Len(t, d.List.Rows, 2)
	base := "/api/sessions/" + d.SessionID

	rec := do(t, srv, http.MethodPost, base+"/map-click", map[string]float64{"lat": 40.65, "lon": 22.95})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "citizen_list_1", d.List.WidgetKey)
	require.NotNil(t, d.List.Selected)
	assert.Equal(t, domain.ID("102"), d.List.Selected.ID)

	rec = do(t, srv, http.MethodPost, base+"/list-click", map[string]int{"row": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "citizen_list_1", d.List.WidgetKey)
	assert.Equal(t, 16, d.Map.Zoom)
	assert.Equal(t, domain.ID("101"), d.List.Selected.ID)

	rec = do(t, srv, http.MethodGet, base+"/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRoundTrip(t *testing.T) {
	srv := newTestServer(nil)
	base := "/api/sessions/" + createSession(t, srv).SessionID

	rec := do(t, srv, http.MethodPost, base+"/chat", map[string]string{"prompt": "how many people are at risk?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var reply dashboard.ChatReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Contains(t, reply.Reply, "There are currently 1 individuals")
	assert.Len(t, reply.History, 2)

	rec = do(t, srv, http.MethodGet, base+"/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []chat.Message `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, reply.History, body.History)
}

func TestChatStream(t *testing.T) {
	srv := newTestServer(nil)
	base := "/api/sessions/" + createSession(t, srv).SessionID

	rec := do(t, srv, http.MethodPost, base+"/chat/stream", map[string]string{"prompt": "best route?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	out := rec.Body.String()
	assert.Regexp(t, `event: ?delta`, out)
	assert.Regexp(t, `event: ?done`, out)
	assert.Contains(t, out, "Target 101")
}

func TestUnknownSessionReturns404(t *testing.T) {
	srv := newTestServer(nil)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/sessions/nope/dashboard", nil},
		{http.MethodPost, "/api/sessions/nope/map-click", map[string]float64{"lat": 1, "lon": 2}},
		{http.MethodPost, "/api/sessions/nope/list-click", map[string]int{"row": 0}},
		{http.MethodGet, "/api/sessions/nope/chat", nil},
		{http.MethodPost, "/api/sessions/nope/chat", map[string]string{"prompt": "hi"}},
		{http.MethodPost, "/api/sessions/nope/chat/stream", map[string]string{"prompt": "hi"}},
		{http.MethodDelete, "/api/sessions/nope", nil},
	} {
		rec := do(t, srv, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tc.path)
		assert.Equal(t, "not_found", body.Error.Code, tc.path)
	}
}

func TestCloseSession(t *testing.T) {
	srv := newTestServer(nil)
	d := createSession(t, srv)
	path := "/api/sessions/" + d.SessionID

	rec := do(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = do(t, srv, http.MethodGet, path+"/dashboard", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(nil)
	base := "/api/sessions/" + createSession(t, srv).SessionID

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, base+"/map-click", map[string]float64{"lat": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, base+"/list-click", map[string]string{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, base+"/chat", map[string]string{"prompt": ""}).Code)
}

func TestRefresh(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["individuals"])
}
