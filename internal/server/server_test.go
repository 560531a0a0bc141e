package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"studycompanion/internal/app"
	"studycompanion/internal/ratelimit"
	"studycompanion/pkg/ai"
	"studycompanion/pkg/storage"
	"studycompanion/pkg/store"
)

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type stubGenerator struct {
	reply string
}

func (g *stubGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.reply, nil
}

func newTestServer(t *testing.T, gen ai.TextGenerator, limiter Limiter) *Server {
	t.Helper()
	if gen == nil {
		gen = &stubGenerator{reply: "ok"}
	}
	objects, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	a, err := app.New(app.Config{
		Store:     store.NewMemoryStore(),
		Objects:   objects,
		Assistant: ai.NewAssistant(gen),
		Now: func() time.Time {
			return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	s, err := New(Config{App: a, Limiter: limiter})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func docxUpload(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
	w.Write([]byte(xml))
	zw.Close()
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUserAndPace(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/user status = %d", rec.Code)
	}
	var user struct {
		Username string `json:"username"`
		Pace     int    `json:"pace"`
	}
	decodeBody(t, rec, &user)
	if user.Username != "mitch" || user.Pace != 40 {
		t.Fatalf("user %+v", user)
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/user/pace", map[string]int{"pace": 55})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH pace status = %d body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &user)
	if user.Pace != 55 {
		t.Fatalf("pace = %d, want 55", user.Pace)
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/user/pace", map[string]int{"pace": 81})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range pace status = %d", rec.Code)
	}
	var errBody struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &errBody)
	if errBody.Message == "" {
		t.Fatal("error body missing message")
	}
}

func TestUnitRoundTrip(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/units", map[string]string{
		"name":  "Pharmacology",
		"color": "#4682B4",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create unit status = %d body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, rec, &created)
	if created.ID == 0 || created.Name != "Pharmacology" {
		t.Fatalf("created unit %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/units", nil)
	var units []struct {
		Name        string `json:"name"`
		TotalTopics int    `json:"totalTopics"`
		LastStudied string `json:"lastStudied"`
	}
	decodeBody(t, rec, &units)
	if len(units) != 4 {
		t.Fatalf("units = %d, want 4 (3 seeded + 1 created)", len(units))
	}
	if units[3].Name != "Pharmacology" || units[3].TotalTopics != 5 || units[3].LastStudied != "Not started" {
		t.Fatalf("unit view %+v", units[3])
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/units/%d", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/units/%d", created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDocumentUploadAndList(t *testing.T) {
	s := newTestServer(t, nil, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="heart.docx"`}
	hdr["Content-Type"] = []string{docxMime}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(docxUpload(t, "The heart pumps blood."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/units/2/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		ID            int64  `json:"id"`
		OriginalName  string `json:"originalName"`
		ExtractedText string `json:"extractedText"`
	}
	decodeBody(t, rec, &doc)
	if doc.OriginalName != "heart.docx" || doc.ExtractedText != "The heart pumps blood." {
		t.Fatalf("document %+v", doc)
	}

	listRec := doJSON(t, s, http.MethodGet, "/api/units/2/documents", nil)
	var docs []json.RawMessage
	decodeBody(t, listRec, &docs)
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}

	dlReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/documents/%d/download", doc.ID), nil)
	dlRec := httptest.NewRecorder()
	s.Router().ServeHTTP(dlRec, dlReq)
	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status = %d", dlRec.Code)
	}
	if ct := dlRec.Header().Get("Content-Type"); ct != docxMime {
		t.Fatalf("download content-type = %q", ct)
	}
	if !strings.Contains(dlRec.Header().Get("Content-Disposition"), "heart.docx") {
		t.Fatalf("content-disposition = %q", dlRec.Header().Get("Content-Disposition"))
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	s := newTestServer(t, nil, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="pic.png"`},
		"Content-Type":        {"image/png"},
	}
	part, _ := mw.CreatePart(hdr)
	part.Write([]byte("png bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/units/1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	objects, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	a, err := app.New(app.Config{
		Store:          store.NewMemoryStore(),
		Objects:        objects,
		Assistant:      ai.NewAssistant(&stubGenerator{reply: "ok"}),
		MaxUploadBytes: 64,
	})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	s, err := New(Config{App: a})
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="big.docx"`},
		"Content-Type":        {docxMime},
	}
	part, _ := mw.CreatePart(hdr)
	part.Write(docxUpload(t, "An upload larger than the configured limit."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/units/2/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAssignmentsAnnotatedAndSorted(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, a := range []map[string]any{
		{"title": "Far exam", "type": "exam", "deadline": "2025-03-20"},
		{"title": "Near CAT", "type": "cat", "deadline": "2025-03-06"},
	} {
		rec := doJSON(t, s, http.MethodPost, "/api/assignments", a)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create assignment status = %d body %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/assignments", nil)
	var list []struct {
		Title        string `json:"title"`
		DaysUntilDue int    `json:"daysUntilDue"`
		Urgency      string `json:"urgency"`
	}
	decodeBody(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("assignments = %d", len(list))
	}
	if list[0].Title != "Near CAT" || list[0].Urgency != "high" {
		t.Fatalf("first assignment %+v", list[0])
	}
	if list[1].Title != "Far exam" || list[1].Urgency != "low" {
		t.Fatalf("second assignment %+v", list[1])
	}
}

func TestSessionUpsertOverHTTP(t *testing.T) {
	s := newTestServer(t, nil, nil)

	post := func() *httptest.ResponseRecorder {
		return doJSON(t, s, http.MethodPost, "/api/study-sessions", map[string]any{
			"date": "2025-03-05", "minutesStudied": 30, "topicsCompleted": 1,
		})
	}
	if rec := post(); rec.Code != http.StatusOK {
		t.Fatalf("first post status = %d", rec.Code)
	}
	rec := post()
	if rec.Code != http.StatusOK {
		t.Fatalf("second post status = %d", rec.Code)
	}
	var result struct {
		Session struct {
			MinutesStudied  int `json:"minutesStudied"`
			TopicsCompleted int `json:"topicsCompleted"`
		} `json:"session"`
	}
	decodeBody(t, rec, &result)
	if result.Session.MinutesStudied != 60 || result.Session.TopicsCompleted != 2 {
		t.Fatalf("accumulated session %+v", result.Session)
	}

	listRec := doJSON(t, s, http.MethodGet, "/api/study-sessions", nil)
	var sessions []json.RawMessage
	decodeBody(t, listRec, &sessions)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
}

func TestChatExchange(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "Let's build a study plan, Mitch."}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "What next?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d body %s", rec.Code, rec.Body.String())
	}
	var reply struct {
		Message struct {
			Content string `json:"content"`
			Role    string `json:"role"`
		} `json:"message"`
		Suggestions []string `json:"suggestions"`
	}
	decodeBody(t, rec, &reply)
	if reply.Message.Role != "assistant" || reply.Message.Content == "" {
		t.Fatalf("reply %+v", reply.Message)
	}
	if len(reply.Suggestions) != 1 || reply.Suggestions[0] != "Generate a study plan" {
		t.Fatalf("suggestions %v", reply.Suggestions)
	}

	logRec := doJSON(t, s, http.MethodGet, "/api/chat/messages", nil)
	var log []struct {
		Role string `json:"role"`
	}
	decodeBody(t, logRec, &log)
	if len(log) != 2 || log[0].Role != "user" || log[1].Role != "assistant" {
		t.Fatalf("chat log %+v", log)
	}
}

func TestChatRateLimited(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(srv.Addr(), "", "studycompanion:test", 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	s := newTestServer(t, nil, limiter)

	if rec := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "hi"}); rec.Code != http.StatusOK {
		t.Fatalf("first chat status = %d", rec.Code)
	}
	rec := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "again"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second chat status = %d, want 429", rec.Code)
	}

	// A different scope keeps its own quota.
	if rec := doJSON(t, s, http.MethodPost, "/api/quiz", map[string]any{"topic": "Anatomy"}); rec.Code == http.StatusTooManyRequests {
		t.Fatal("quiz should not share the chat quota")
	}
}

func TestQuizEndpoint(t *testing.T) {
	quizJSON := `{"quiz": {"title": "Anatomy Basics", "questions": [{"type": "short_answer", "question": "Largest organ?", "correct": "Skin", "explanation": "By surface area."}]}}`
	s := newTestServer(t, &stubGenerator{reply: quizJSON}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/quiz", map[string]any{"topic": "Anatomy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("quiz status = %d body %s", rec.Code, rec.Body.String())
	}
	var quiz struct {
		Title     string            `json:"title"`
		Questions []json.RawMessage `json:"questions"`
	}
	decodeBody(t, rec, &quiz)
	if quiz.Title != "Anatomy Basics" || len(quiz.Questions) != 1 {
		t.Fatalf("quiz %+v", quiz)
	}
}

func TestQuizBadModelOutputMapsToBadGateway(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "sorry, no JSON today"}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/quiz", map[string]any{"topic": "Anatomy"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/study-plan", map[string]any{
		"title": "Morning review", "scheduledDate": "2025-03-05", "startTime": "08:00", "endTime": "09:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plan entry status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/study-sessions", map[string]any{
		"date": "2025-03-05", "minutesStudied": 45, "topicsCompleted": 2,
	}); rec.Code != http.StatusOK {
		t.Fatalf("record session status = %d", rec.Code)
	}

	dashRec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if dashRec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", dashRec.Code)
	}
	var dash struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		TodaysProgress struct {
			Total int `json:"total"`
		} `json:"todaysProgress"`
		StudyStreak int `json:"studyStreak"`
		NextSession *struct {
			Title string `json:"title"`
		} `json:"nextSession"`
	}
	decodeBody(t, dashRec, &dash)
	if dash.User.Username != "mitch" {
		t.Fatalf("dashboard user %+v", dash.User)
	}
	if dash.TodaysProgress.Total != 1 || dash.StudyStreak != 1 {
		t.Fatalf("dashboard %+v", dash)
	}
	if dash.NextSession == nil || dash.NextSession.Title != "Morning review" {
		t.Fatalf("nextSession %+v", dash.NextSession)
	}
}

func TestNotFoundMappings(t *testing.T) {
	s := newTestServer(t, nil, nil)

	paths := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/units/999/documents", nil},
		{http.MethodDelete, "/api/documents/999", nil},
		{http.MethodPatch, "/api/notes/999", map[string]string{"content": "x"}},
		{http.MethodPatch, "/api/summaries/999/approve", nil},
		{http.MethodDelete, "/api/assignments/999", nil},
		{http.MethodPatch, "/api/study-plan/999/complete", nil},
	}
	for _, tc := range paths {
		rec := doJSON(t, s, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

func TestStudyPlanGenerateEndpoint(t *testing.T) {
	planJSON := `{"schedule": [{"day": "Thursday", "sessions": [{"subject": "Immunology", "time": "10:00-11:00", "topic": "B cells", "type": "study"}]}]}`
	s := newTestServer(t, &stubGenerator{reply: planJSON}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/study-plan/generate", map[string]int{"availableHours": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d body %s", rec.Code, rec.Body.String())
	}
	var plan struct {
		Schedule []struct {
			Day string `json:"day"`
		} `json:"schedule"`
	}
	decodeBody(t, rec, &plan)
	if len(plan.Schedule) != 1 || plan.Schedule[0].Day != "Thursday" {
		t.Fatalf("plan %+v", plan)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: `{"documents": []}`}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/search", map[string]string{"query": "immune response"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d body %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Documents []json.RawMessage `json:"documents"`
	}
	decodeBody(t, rec, &result)
	if result.Documents == nil {
		t.Fatal("documents field missing")
	}
}
