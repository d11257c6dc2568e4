package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// TenantID accepts the company id as a JSON number or string.
type TenantID string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TenantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TenantID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("companyId must be a number or string")
	}
	*t = TenantID(n.String())
	return nil
}

// MessageRequest is a single chat message to ingest.
type MessageRequest struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	CompanyID TenantID       `json:"companyId"`
	Meta      map[string]any `json:"meta"`
}

// DocumentRequest is one document of a batch.
type DocumentRequest struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta"`
}

// DocumentsRequest is a batch of documents for one tenant.
type DocumentsRequest struct {
	CompanyID TenantID          `json:"companyId"`
	Documents []DocumentRequest `json:"documents"`
}

// QueryRequest asks a question.
type QueryRequest struct {
	Question  string         `json:"question"`
	CompanyID TenantID       `json:"companyId"`
	Meta      map[string]any `json:"meta"`
}

// SuggestRequest asks for a reply suggestion to a chat message.
type SuggestRequest struct {
	Message   string         `json:"message"`
	CompanyID TenantID       `json:"companyId"`
	Meta      map[string]any `json:"meta"`
}

// DiffRequest carries either a raw diff or a pull request reference.
type DiffRequest struct {
	Diff      string   `json:"diff"`
	CompanyID TenantID `json:"companyId"`
	Owner     string   `json:"owner"`
	Repo      string   `json:"repo"`
	Number    int      `json:"number"`
}

// CalendarRequest asks for a calendar action.
type CalendarRequest struct {
	CompanyID TenantID               `json:"companyId"`
	Command   string                 `json:"command"`
	Calendars []domain.CalendarInfo  `json:"calendars"`
	Events    []domain.CalendarEvent `json:"events"`
	Meta      map[string]any         `json:"meta"`

	// Apply performs the generated action against the calendar provider.
	Apply bool `json:"apply"`
}

// Response wraps every successful use-case reply.
type Response struct {
	// Response is the answer, or null when there is none.
	Response any `json:"response"`

	State domain.RequestState `json:"state,omitempty"`
}

// IngestResponse reports a batch or file ingestion.
type IngestResponse struct {
	Status    string            `json:"status"`
	Ingested  []string          `json:"ingested"`
	Unchanged []string          `json:"unchanged"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func newIngestResponse(report *domain.IngestReport) IngestResponse {
	resp := IngestResponse{
		Status:    "ok",
		Ingested:  nonNil(report.Ingested),
		Unchanged: nonNil(report.Unchanged),
	}
	if !report.OK() {
		resp.Status = "partial"
		resp.Failed = make(map[string]string, len(report.Failed))
		for id, err := range report.Failed {
			resp.Failed[id] = err.Error()
		}
	}
	return resp
}

// bindJSON decodes the body keeping numbers exact, so large chat ids survive.
func bindJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

// normaliseMeta converts json.Number values to int64 or float64 and the
// chat id to a string, so filters compare like with like.
func normaliseMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = normaliseValue(v)
	}
	if id, ok := out[domain.MetaChatID]; ok && id != nil {
		if _, isString := id.(string); !isString {
			out[domain.MetaChatID] = fmt.Sprint(id)
		}
	}
	return out
}

func normaliseValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = normaliseValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = normaliseValue(inner)
		}
		return out
	}
	return v
}

// chatID returns the normalised chat id from metadata.
func chatID(meta map[string]any) string {
	id, _ := meta[domain.MetaChatID].(string)
	return id
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
