package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

type testPorts struct {
	ingestion *mockIngestion
	query     *mockQuery
	calendar  *mockCalendar
	diff      *mockDiff
}

func newTestServer(t *testing.T) (*Server, *testPorts) {
	t.Helper()
	p := &testPorts{
		ingestion: &mockIngestion{},
		query:     &mockQuery{answer: &domain.Answer{Text: "42", State: domain.StateAnswered}},
		calendar:  &mockCalendar{},
		diff:      &mockDiff{},
	}
	s, err := NewServer(&Ports{Ingestion: p.ingestion, Query: p.query, Calendar: p.calendar, Diff: p.diff})
	require.NoError(t, err)
	return s, p
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{Query: &mockQuery{}})
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_AddMessage(t *testing.T) {
	s, p := newTestServer(t)

	body := `{"id":"m1","content":"hello team","companyId":7,
		"meta":{"chat_id":-1001234567890,"date":"2024-03-04T09:30:00Z","author":"Ann","votes":3}}`
	rec := do(t, s, http.MethodPost, "/api/agent/text", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, p.ingestion.docs, 1)
	doc := p.ingestion.docs[0]
	assert.Equal(t, "7", doc.Tenant)
	assert.Equal(t, "-1001234567890", doc.ChatID)
	assert.Equal(t, "-1001234567890", doc.Metadata[domain.MetaChatID])
	assert.Equal(t, int64(3), doc.Metadata["votes"])
	assert.Equal(t, "Ann", doc.Metadata["author"])
}

func TestServer_AddMessage_Invalid(t *testing.T) {
	s, _ := newTestServer(t)

	tests := map[string]string{
		"not json":       `{"id":`,
		"missing tenant": `{"id":"m1","content":"x","meta":{}}`,
		"missing id":     `{"content":"x","companyId":"7"}`,
		"bad company id": `{"id":"m1","content":"x","companyId":true}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/agent/text", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := decode(t, rec)["error"].(map[string]any)
			assert.Equal(t, "bad_request", errBody["code"])
		})
	}
}

func TestServer_AddDocuments(t *testing.T) {
	s, p := newTestServer(t)
	report := domain.NewIngestReport()
	report.Ingested = []string{"d1"}
	report.Failed["d2"] = fmt.Errorf("%w: embed", domain.ErrIngestion)
	p.ingestion.report = report

	body := `{"companyId":"7","documents":[{"id":"d1","content":"a","meta":{}},{"id":"d2","content":"b","meta":{}}]}`
	rec := do(t, s, http.MethodPost, "/api/agent/documents", body)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, "partial", out["status"])
	assert.Equal(t, []any{"d1"}, out["ingested"])
	assert.Equal(t, []any{}, out["unchanged"])
	assert.Contains(t, out["failed"].(map[string]any)["d2"], "embed")
	assert.Len(t, p.ingestion.docs, 2)

	rec = do(t, s, http.MethodPost, "/api/agent/documents", `{"documents":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_DeleteDocument(t *testing.T) {
	s, p := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/api/agent/documents/d1?companyId=7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"7/d1"}, p.ingestion.deleted)

	rec = do(t, s, http.MethodDelete, "/api/agent/documents/d1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AddFile(t *testing.T) {
	s, p := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("id", "f1"))
	require.NoError(t, w.WriteField("companyId", "7"))
	require.NoError(t, w.WriteField("meta", `{"chat_id":55,"author":"Ann"}`))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="notes.md"`)
	h.Set("Content-Type", "text/markdown")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("# Notes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/agent/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, p.ingestion.files, 1)
	f := p.ingestion.files[0]
	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "7", f.Tenant)
	assert.Equal(t, "notes.md", f.Name)
	assert.Equal(t, "text/markdown", f.MIMEType)
	assert.Equal(t, []byte("# Notes"), f.Data)
	assert.Equal(t, "55", f.Metadata[domain.MetaChatID])
}

func TestServer_AddFile_Errors(t *testing.T) {
	s, p := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/agent/files", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p.ingestion.err = fmt.Errorf("%w: %w: clip.mov", domain.ErrValidation, domain.ErrUnsupportedType)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "clip.mov")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0, 1})
	require.NoError(t, w.WriteField("companyId", "7"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/agent/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Query(t *testing.T) {
	s, p := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/agent/query",
		`{"question":"what is the answer?","companyId":7,"meta":{"chat_id":"c1","author":"Ann"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "42", out["response"])
	assert.Equal(t, string(domain.StateAnswered), out["state"])

	require.Len(t, p.query.queries, 1)
	q := p.query.queries[0]
	assert.Equal(t, "what is the answer?", q.Text)
	assert.Equal(t, "7", q.Tenant)
	assert.Equal(t, "c1", q.ChatID)
}

func TestServer_QueryNoAnswerIsNull(t *testing.T) {
	s, p := newTestServer(t)
	p.query.answer = &domain.Answer{State: domain.StateNoAnswer}

	rec := do(t, s, http.MethodPost, "/api/agent/suggest", `{"message":"hi","companyId":"7","meta":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Nil(t, out["response"])
	assert.Equal(t, string(domain.StateNoAnswer), out["state"])
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: question", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: bad json", domain.ErrSchemaValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: llm down", domain.ErrUpstream), http.StatusBadGateway},
		{domain.ErrLLMUnavailable, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s, p := newTestServer(t)
			p.query.answer = &domain.Answer{State: domain.StateFailed}
			p.query.err = tt.err

			rec := do(t, s, http.MethodPost, "/api/agent/query", `{"question":"q","companyId":7}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_GenerateEvent(t *testing.T) {
	s, p := newTestServer(t)
	p.calendar.action = &domain.CalendarAction{
		Action:  domain.CalendarDelete,
		Event:   domain.CalendarEventRef{CalendarID: "primary", EventID: "e1"},
		Message: "Deleted.",
	}

	body := `{"companyId":7,"command":"cancel the sync","calendars":[{"id":"primary","summary":"Work"}],
		"events":[{"id":"e1","summary":"Sync","start":{"dateTime":"2024-03-05T15:00:00+01:00"},"end":{"dateTime":"2024-03-05T16:00:00+01:00"}}],
		"meta":{"chat_id":"c1"}}`
	rec := do(t, s, http.MethodPost, "/api/agent/calendars/event", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	action := out["response"].(map[string]any)
	assert.Equal(t, "delete", action["action"])
	assert.Zero(t, p.calendar.applied)

	require.Len(t, p.calendar.commands, 1)
	cmd := p.calendar.commands[0]
	assert.Equal(t, "7", cmd.Tenant)
	require.Len(t, cmd.Events, 1)
	assert.Equal(t, "e1", cmd.Events[0].ID)

	rec = do(t, s, http.MethodPost, "/api/agent/calendars/event", strings.Replace(body, `"companyId":7`, `"companyId":7,"apply":true`, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "e1", decode(t, rec)["eventId"])
	assert.Equal(t, 1, p.calendar.applied)
}

func TestServer_SummaryGitDiff(t *testing.T) {
	s, p := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/agent/git/diff/summary", `{"diff":"diff --git a/x b/x","companyId":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diff summary", decode(t, rec)["response"])
	assert.Equal(t, "diff --git a/x b/x", p.diff.diff)

	rec = do(t, s, http.MethodPost, "/api/agent/git/diff/summary", `{"owner":"o","repo":"r","number":3,"companyId":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pr summary", decode(t, rec)["response"])
	assert.Equal(t, "o/r", p.diff.pr)
}

func TestServer_OptionalPortsMissing(t *testing.T) {
	s, err := NewServer(&Ports{Ingestion: &mockIngestion{}, Query: &mockQuery{}})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/agent/calendars/event", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	rec = do(t, s, http.MethodPost, "/api/agent/git/diff/summary", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestTenantID_UnmarshalJSON(t *testing.T) {
	tests := map[string]TenantID{
		`7`:      "7",
		`"acme"`: "acme",
		`" 12 "`: "12",
		`null`:   "",
		`1.5e3`:  "1.5e3",
	}
	for in, want := range tests {
		var got TenantID
		require.NoError(t, json.Unmarshal([]byte(in), &got), in)
		assert.Equal(t, want, got)
	}
	var bad TenantID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}
