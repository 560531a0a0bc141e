package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"studycompanion/internal/app"
	"studycompanion/internal/ingest"
	"studycompanion/internal/util"
	"studycompanion/pkg/ai"
	"studycompanion/pkg/domain"
	"studycompanion/pkg/store"
)

// Limiter gates expensive AI-backed endpoints per client key.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Limiter        Limiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes the study companion HTTP API.
type Server struct {
	app            *app.App
	limiter        Limiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	s := &Server{
		app:            cfg.App,
		limiter:        cfg.Limiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware stack.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/user", s.handleUser)
	s.mux.HandleFunc("PATCH /api/user/pace", s.handleUpdatePace)

	s.mux.HandleFunc("GET /api/units", s.handleListUnits)
	s.mux.HandleFunc("POST /api/units", s.handleCreateUnit)
	s.mux.HandleFunc("DELETE /api/units/{id}", s.handleDeleteUnit)

	s.mux.HandleFunc("GET /api/units/{unitId}/documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /api/units/{unitId}/documents", s.handleUploadDocument)
	s.mux.HandleFunc("GET /api/documents/{id}/download", s.handleDownloadDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	s.mux.Handle("POST /api/documents/{id}/summary", s.withRateLimit("summary", s.handleSummarizeDocument))

	s.mux.HandleFunc("GET /api/summaries", s.handleListSummaries)
	s.mux.HandleFunc("PATCH /api/summaries/{id}/approve", s.handleApproveSummary)
	s.mux.HandleFunc("DELETE /api/summaries/{id}", s.handleDeleteSummary)

	s.mux.HandleFunc("GET /api/units/{unitId}/notes", s.handleListNotes)
	s.mux.HandleFunc("POST /api/units/{unitId}/notes", s.handleCreateNote)
	s.mux.HandleFunc("PATCH /api/notes/{id}", s.handleUpdateNote)
	s.mux.HandleFunc("DELETE /api/notes/{id}", s.handleDeleteNote)

	s.mux.HandleFunc("GET /api/assignments", s.handleListAssignments)
	s.mux.HandleFunc("POST /api/assignments", s.handleCreateAssignment)
	s.mux.HandleFunc("PATCH /api/assignments/{id}", s.handleUpdateAssignment)
	s.mux.HandleFunc("DELETE /api/assignments/{id}", s.handleDeleteAssignment)

	s.mux.HandleFunc("GET /api/study-plan", s.handleListPlan)
	s.mux.HandleFunc("POST /api/study-plan", s.handleCreatePlanEntry)
	s.mux.Handle("POST /api/study-plan/generate", s.withRateLimit("plan", s.handleGeneratePlan))
	s.mux.HandleFunc("PATCH /api/study-plan/{id}/complete", s.handleCompletePlanEntry)
	s.mux.HandleFunc("DELETE /api/study-plan/{id}", s.handleDeletePlanEntry)

	s.mux.HandleFunc("GET /api/study-sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/study-sessions", s.handleRecordSession)

	s.mux.HandleFunc("GET /api/chat/messages", s.handleChatMessages)
	s.mux.Handle("POST /api/chat", s.withRateLimit("chat", s.handleChat))
	s.mux.Handle("POST /api/quiz", s.withRateLimit("quiz", s.handleGenerateQuiz))
	s.mux.Handle("POST /api/search", s.withRateLimit("search", s.handleSearch))

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
}

func (s *Server) withRateLimit(scope string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			key := scope + ":" + util.ClientIP(r, s.trustedProxies)
			if !s.limiter.Allow(key) {
				writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
				return
			}
		}
		next(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUser(w http.ResponseWriter, _ *http.Request) {
	user, err := s.app.CurrentUser()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdatePace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pace int `json:"pace"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.UpdatePace(req.Pace)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUnits(w http.ResponseWriter, _ *http.Request) {
	units, err := s.app.Units()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	unit, err := s.app.CreateUnit(req.Name, req.Description, req.Color)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteUnit(r.Context(), id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathID(w, r, "unitId")
	if !ok {
		return
	}
	docs, err := s.app.UnitDocuments(unitID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathID(w, r, "unitId")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload failed")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	doc, err := s.app.UploadDocument(r.Context(), unitID, header.Filename, mimeType, content)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	doc, reader, err := s.app.OpenDocument(r.Context(), id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	defer reader.Close()
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	if _, err := io.Copy(w, reader); err != nil {
		util.LoggerFromContext(r.Context()).Warn("stream document", "id", id, "error", err)
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteDocument(r.Context(), id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSummarizeDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := s.app.SummarizeDocument(r.Context(), id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, _ *http.Request) {
	summaries, err := s.app.Summaries()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleApproveSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := s.app.ApproveSummary(id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteSummary(id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathID(w, r, "unitId")
	if !ok {
		return
	}
	notes, err := s.app.UnitNotes(unitID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathID(w, r, "unitId")
	if !ok {
		return
	}
	var req struct {
		Content    string `json:"content"`
		DocumentID *int64 `json:"documentId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := s.app.CreateNote(unitID, req.Content, req.DocumentID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := s.app.UpdateNote(id, req.Content)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteNote(id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListAssignments(w http.ResponseWriter, _ *http.Request) {
	assignments, err := s.app.Assignments()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

type assignmentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Questions   string `json:"questions"`
	Deadline    string `json:"deadline"`
	UnitID      *int64 `json:"unitId"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	assignment, err := s.app.CreateAssignment(domain.Assignment{
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.AssignmentType(req.Type),
		Questions:   req.Questions,
		Deadline:    deadline,
		UnitID:      req.UnitID,
	})
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (s *Server) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Type        *string `json:"type"`
		Questions   *string `json:"questions"`
		Deadline    *string `json:"deadline"`
		UnitID      *int64  `json:"unitId"`
		Completed   *bool   `json:"completed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	update := store.AssignmentUpdate{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		UnitID:      req.UnitID,
		Completed:   req.Completed,
	}
	if req.Type != nil {
		typ := domain.AssignmentType(*req.Type)
		update.Type = &typ
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Deadline = &deadline
	}
	assignment, err := s.app.UpdateAssignment(id, update)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeleteAssignment(id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListPlan(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.StudyPlan(r.URL.Query().Get("date"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreatePlanEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		ScheduledDate    string `json:"scheduledDate"`
		StartTime        string `json:"startTime"`
		EndTime          string `json:"endTime"`
		EstimatedMinutes int    `json:"estimatedMinutes"`
		UnitID           *int64 `json:"unitId"`
		DocumentID       *int64 `json:"documentId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	scheduled, err := parseDeadline(req.ScheduledDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.app.CreatePlanEntry(domain.StudyPlanEntry{
		Title:            req.Title,
		Description:      req.Description,
		ScheduledDate:    scheduled,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		EstimatedMinutes: req.EstimatedMinutes,
		UnitID:           req.UnitID,
		DocumentID:       req.DocumentID,
	})
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AvailableHours int `json:"availableHours"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := s.app.GeneratePlan(r.Context(), req.AvailableHours)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCompletePlanEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entry, err := s.app.CompletePlanEntry(id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeletePlanEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.app.DeletePlanEntry(id); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	sessions, err := s.app.Sessions(limit)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            string `json:"date"`
		MinutesStudied  int    `json:"minutesStudied"`
		TopicsCompleted int    `json:"topicsCompleted"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.app.RecordSession(req.Date, req.MinutesStudied, req.TopicsCompleted)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, _ *http.Request) {
	messages, err := s.app.ChatMessages(50)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, suggestions, err := s.app.Chat(r.Context(), req.Message)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     reply,
		"suggestions": suggestions,
	})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic         string `json:"topic"`
		Difficulty    string `json:"difficulty"`
		QuestionCount int    `json:"questionCount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	quiz, err := s.app.GenerateQuiz(r.Context(), req.Topic, req.Difficulty, req.QuestionCount)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	results, err := s.app.Search(r.Context(), req.Query)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": results})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.app.BuildDashboard(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// writeAppError maps application errors onto HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrUnitNotFound),
		errors.Is(err, app.ErrDocumentNotFound),
		errors.Is(err, app.ErrNoteNotFound),
		errors.Is(err, app.ErrSummaryNotFound),
		errors.Is(err, app.ErrAssignmentNotFound),
		errors.Is(err, app.ErrPlanEntryNotFound),
		errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidPace),
		errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrNoExtractedText),
		errors.Is(err, ingest.ErrUnsupportedType),
		errors.Is(err, ingest.ErrFileTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrBadModelOutput):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseDeadline(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("deadline required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
