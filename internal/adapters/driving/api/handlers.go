package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

func (s *Server) addMessage(c *gin.Context) {
	var req MessageRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	meta := normaliseMeta(req.Meta)
	doc := domain.Document{
		ID:       req.ID,
		Tenant:   string(req.CompanyID),
		ChatID:   chatID(meta),
		Content:  req.Content,
		Metadata: meta,
	}
	if err := s.ports.Ingestion.Ingest(c.Request.Context(), doc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (s *Server) addDocuments(c *gin.Context) {
	var req DocumentsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.CompanyID == "" {
		writeError(c, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrMissingTenant))
		return
	}

	docs := make([]domain.Document, len(req.Documents))
	for i, d := range req.Documents {
		meta := normaliseMeta(d.Meta)
		docs[i] = domain.Document{
			ID:       d.ID,
			Tenant:   string(req.CompanyID),
			ChatID:   chatID(meta),
			Content:  d.Content,
			Metadata: meta,
		}
	}
	report := s.ports.Ingestion.IngestBatch(c.Request.Context(), docs)
	c.JSON(http.StatusOK, newIngestResponse(report))
}

func (s *Server) deleteDocument(c *gin.Context) {
	tenant := c.Query("companyId")
	if err := s.ports.Ingestion.Delete(c.Request.Context(), tenant, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// addFile accepts multipart fields id, file, companyId and meta (a JSON object).
func (s *Server) addFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, fmt.Errorf("%w: file is required", domain.ErrValidation))
		return
	}

	meta := map[string]any{}
	if raw := c.PostForm("meta"); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&meta); err != nil {
			writeError(c, fmt.Errorf("%w: meta must be a JSON object: %v", domain.ErrValidation, err))
			return
		}
	}

	f, err := header.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	report, err := s.ports.Ingestion.IngestFile(c.Request.Context(), domain.FileUpload{
		ID:       c.PostForm("id"),
		Tenant:   strings.TrimSpace(c.PostForm("companyId")),
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
		Metadata: normaliseMeta(meta),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newIngestResponse(report))
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	meta := normaliseMeta(req.Meta)
	answer, err := s.ports.Query.Query(c.Request.Context(), domain.Query{
		Text:     req.Question,
		Tenant:   string(req.CompanyID),
		ChatID:   chatID(meta),
		Metadata: meta,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerResponse(answer))
}

func (s *Server) suggest(c *gin.Context) {
	var req SuggestRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	meta := normaliseMeta(req.Meta)
	answer, err := s.ports.Query.Suggest(c.Request.Context(), domain.Query{
		Text:     req.Message,
		Tenant:   string(req.CompanyID),
		ChatID:   chatID(meta),
		Metadata: meta,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerResponse(answer))
}

func (s *Server) generateEvent(c *gin.Context) {
	if s.ports.Calendar == nil {
		writeError(c, fmt.Errorf("calendar: %w", domain.ErrNotImplemented))
		return
	}
	var req CalendarRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	action, err := s.ports.Calendar.GenerateEvent(ctx, domain.CalendarCommand{
		Tenant:    string(req.CompanyID),
		Command:   req.Command,
		Calendars: req.Calendars,
		Events:    req.Events,
		Metadata:  normaliseMeta(req.Meta),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if !req.Apply {
		c.JSON(http.StatusOK, Response{Response: action})
		return
	}

	eventID, err := s.ports.Calendar.ApplyEvent(ctx, *action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": action, "eventId": eventID})
}

func (s *Server) summaryGitDiff(c *gin.Context) {
	if s.ports.Diff == nil {
		writeError(c, fmt.Errorf("diff summary: %w", domain.ErrNotImplemented))
		return
	}
	var req DiffRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	var (
		summary string
		err     error
	)
	if strings.TrimSpace(req.Diff) == "" && req.Owner != "" && req.Repo != "" && req.Number > 0 {
		summary, err = s.ports.Diff.SummarizePullRequest(c.Request.Context(), req.Owner, req.Repo, req.Number)
	} else {
		summary, err = s.ports.Diff.Summarize(c.Request.Context(), req.Diff)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Response: summary, State: domain.StateAnswered})
}

// answerResponse renders a missing answer as a null response.
func answerResponse(answer *domain.Answer) Response {
	resp := Response{State: answer.State}
	if answer.Answered() {
		resp.Response = answer.Text
	}
	return resp
}
