package app

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"studycompanion/pkg/ai"
	"studycompanion/pkg/domain"
	"studycompanion/pkg/storage"
	"studycompanion/pkg/store"
)

type scriptedGenerator struct {
	reply    string
	err      error
	lastUser string
	calls    int
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	g.lastUser = userPrompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestApp(t *testing.T, gen ai.TextGenerator) *App {
	t.Helper()
	if gen == nil {
		gen = &scriptedGenerator{reply: "ok"}
	}
	objects, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	a, err := New(Config{
		Store:     store.NewMemoryStore(),
		Objects:   objects,
		Assistant: ai.NewAssistant(gen),
		Now: func() time.Time {
			return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) // a Wednesday
		},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func docxFixture(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func TestNewSeedsUserAndUnits(t *testing.T) {
	a := newTestApp(t, nil)

	user, err := a.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.Username != "mitch" || user.Name != "Mitchell" || user.Pace != 40 {
		t.Fatalf("unexpected seed user %+v", user)
	}

	units, err := a.Units()
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("seeded %d units, want 3", len(units))
	}
	if units[0].Name != "Anatomy" || units[0].Color != "#8FBC8F" {
		t.Fatalf("unexpected first unit %+v", units[0])
	}
	// Fresh units have no documents: floor of 5 topics, nothing studied.
	if units[0].TotalTopics != 5 || units[0].LastStudied != "Not started" {
		t.Fatalf("unexpected unit view %+v", units[0])
	}
}

func TestUpdatePaceValidatesRange(t *testing.T) {
	a := newTestApp(t, nil)

	user, err := a.UpdatePace(65)
	if err != nil {
		t.Fatalf("UpdatePace: %v", err)
	}
	if user.Pace != 65 {
		t.Fatalf("pace = %d, want 65", user.Pace)
	}
	for _, pace := range []int{0, -1, 81} {
		if _, err := a.UpdatePace(pace); !errors.Is(err, ErrInvalidPace) {
			t.Errorf("UpdatePace(%d) err = %v, want ErrInvalidPace", pace, err)
		}
	}
}

func TestUploadDocumentStoresBlobAndExtractsText(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()

	doc, err := a.UploadDocument(context.Background(), units[0].ID, "nervous-system.docx", docxMime, docxFixture(t, "The nervous system controls the body."))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if doc.ExtractedText != "The nervous system controls the body." {
		t.Fatalf("extractedText = %q", doc.ExtractedText)
	}
	if doc.StorageKey == "" || !strings.HasSuffix(doc.StorageKey, ".docx") {
		t.Fatalf("storageKey = %q", doc.StorageKey)
	}

	got, r, err := a.OpenDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	r.Close()
	if got.OriginalName != "nervous-system.docx" {
		t.Fatalf("originalName = %q", got.OriginalName)
	}

	views, _ := a.Units()
	if views[0].DocumentsCount != 1 || views[0].TotalTopics != 5 {
		t.Fatalf("unit view after upload %+v", views[0])
	}
}

func TestUploadDocumentRejectsUnsupportedType(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()

	if _, err := a.UploadDocument(context.Background(), units[0].ID, "photo.png", "image/png", []byte("png")); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := a.UploadDocument(context.Background(), 9999, "a.docx", docxMime, docxFixture(t, "x")); !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("err = %v, want ErrUnitNotFound", err)
	}
}

func TestUploadDocumentKeepsRecordWhenExtractionFails(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()

	doc, err := a.UploadDocument(context.Background(), units[0].ID, "broken.pdf", "application/pdf", []byte("not really a pdf"))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if doc.ExtractedText != "" {
		t.Fatalf("extractedText = %q, want empty", doc.ExtractedText)
	}
}

func TestDeleteUnitCascades(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()
	unitID := units[0].ID
	ctx := context.Background()

	doc, err := a.UploadDocument(ctx, unitID, "notes.docx", docxMime, docxFixture(t, "Cells divide by mitosis."))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if _, err := a.CreateNote(unitID, "remember the phases", nil); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := a.SummarizeDocument(ctx, doc.ID); err != nil {
		t.Fatalf("SummarizeDocument: %v", err)
	}

	if err := a.DeleteUnit(ctx, unitID); err != nil {
		t.Fatalf("DeleteUnit: %v", err)
	}

	if _, err := a.UnitDocuments(unitID); !errors.Is(err, ErrUnitNotFound) {
		t.Fatalf("documents after delete: err = %v", err)
	}
	if _, _, err := a.OpenDocument(ctx, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("document after delete: err = %v", err)
	}
	summaries, _ := a.Summaries()
	if len(summaries) != 0 {
		t.Fatalf("summaries after delete = %d, want 0", len(summaries))
	}
}

func TestSummarizeDocumentCreatesUnapprovedSummary(t *testing.T) {
	gen := &scriptedGenerator{reply: "- mitosis has four phases"}
	a := newTestApp(t, gen)
	units, _ := a.Units()
	ctx := context.Background()

	doc, err := a.UploadDocument(ctx, units[0].ID, "mitosis.docx", docxMime, docxFixture(t, "Cells divide by mitosis."))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}

	summary, err := a.SummarizeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("SummarizeDocument: %v", err)
	}
	if summary.Approved {
		t.Fatal("new summary must not be approved")
	}
	if summary.DocumentID == nil || *summary.DocumentID != doc.ID {
		t.Fatalf("summary documentId = %v", summary.DocumentID)
	}
	if !strings.Contains(gen.lastUser, "Document: mitosis.docx") {
		t.Errorf("prompt missing document context: %q", gen.lastUser)
	}

	approved, err := a.ApproveSummary(summary.ID)
	if err != nil {
		t.Fatalf("ApproveSummary: %v", err)
	}
	if !approved.Approved {
		t.Fatal("summary not approved after ApproveSummary")
	}
}

func TestSummarizeDocumentWithoutText(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()
	ctx := context.Background()

	doc, err := a.UploadDocument(ctx, units[0].ID, "scan.pdf", "application/pdf", []byte("image only"))
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if _, err := a.SummarizeDocument(ctx, doc.ID); !errors.Is(err, ErrNoExtractedText) {
		t.Fatalf("err = %v, want ErrNoExtractedText", err)
	}
}

func TestRecordSessionAccumulates(t *testing.T) {
	a := newTestApp(t, nil)

	first, err := a.RecordSession("2025-03-05", 30, 1)
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if first.Session.MinutesStudied != 30 || first.Session.TopicsCompleted != 1 {
		t.Fatalf("first session %+v", first.Session)
	}
	if first.BreakSuggestion != "" {
		t.Fatalf("unexpected break suggestion %q", first.BreakSuggestion)
	}

	second, err := a.RecordSession("2025-03-05", 30, 1)
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if second.Session.ID != first.Session.ID {
		t.Fatal("second record created a new session instead of updating")
	}
	if second.Session.MinutesStudied != 60 || second.Session.TopicsCompleted != 2 {
		t.Fatalf("accumulated session %+v", second.Session)
	}

	sessions, _ := a.Sessions(30)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
}

func TestRecordSessionSuggestsBreakOverThreshold(t *testing.T) {
	a := newTestApp(t, nil)

	// 2025-03-08 is a Saturday: the weekend threshold of 90 applies.
	result, err := a.RecordSession("2025-03-08", 95, 2)
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if result.BreakSuggestion == "" {
		t.Fatal("expected break suggestion over weekend threshold")
	}

	weekday, err := a.RecordSession("2025-03-05", 95, 2)
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if weekday.BreakSuggestion != "" {
		t.Fatalf("no suggestion expected below weekday threshold, got %q", weekday.BreakSuggestion)
	}
}

func TestChatPersistsBothTurns(t *testing.T) {
	gen := &scriptedGenerator{reply: "Hi Mitch, ready to study?"}
	a := newTestApp(t, gen)
	ctx := context.Background()

	saved, _, err := a.Chat(ctx, "Hello there")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if saved.Role != domain.RoleAssistant || saved.Content != "Hi Mitch, ready to study?" {
		t.Fatalf("saved reply %+v", saved)
	}

	log, err := a.ChatMessages(50)
	if err != nil {
		t.Fatalf("ChatMessages: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("chat log = %d messages, want 2", len(log))
	}
	if log[0].Role != domain.RoleUser || log[1].Role != domain.RoleAssistant {
		t.Fatalf("chat log order wrong: %+v", log)
	}

	// A second turn folds the prior exchange into the prompt, without
	// duplicating the new message.
	if _, _, err := a.Chat(ctx, "What should I review?"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(gen.lastUser, "Mitch: Hello there") {
		t.Errorf("prompt missing history: %q", gen.lastUser)
	}
	if strings.Count(gen.lastUser, "What should I review?") != 1 {
		t.Errorf("new message duplicated in prompt: %q", gen.lastUser)
	}
}

func TestChatErrorDoesNotSaveReply(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model offline")}
	a := newTestApp(t, gen)

	if _, _, err := a.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from failed generation")
	}
	log, _ := a.ChatMessages(50)
	if len(log) != 1 || log[0].Role != domain.RoleUser {
		t.Fatalf("chat log after failure %+v", log)
	}
}

func TestBuildDashboard(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()
	today := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	if _, err := a.CreatePlanEntry(domain.StudyPlanEntry{
		Title: "Morning review", ScheduledDate: today, StartTime: "08:00", EndTime: "09:00",
	}); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}
	done, err := a.CreatePlanEntry(domain.StudyPlanEntry{
		Title: "Flashcards", ScheduledDate: today, StartTime: "07:00", EndTime: "07:30",
	})
	if err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}
	if _, err := a.CompletePlanEntry(done.ID); err != nil {
		t.Fatalf("CompletePlanEntry: %v", err)
	}

	// Sessions today and yesterday with topics give a streak of 2.
	if _, err := a.RecordSession("2025-03-05", 45, 2); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if _, err := a.RecordSession("2025-03-04", 30, 1); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	if _, err := a.CreateAssignment(domain.Assignment{
		Title: "Anatomy CAT", Type: domain.TypeCAT, Deadline: today.AddDate(0, 0, 2),
	}); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	past, err := a.CreateAssignment(domain.Assignment{
		Title: "Old essay", Deadline: today.AddDate(0, 0, -2),
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	_ = past

	dash, err := a.BuildDashboard(ctx)
	if err != nil {
		t.Fatalf("BuildDashboard: %v", err)
	}
	if dash.User.Username != "mitch" {
		t.Fatalf("dashboard user %+v", dash.User)
	}
	if dash.TodaysProgress.Completed != 1 || dash.TodaysProgress.Total != 2 || dash.TodaysProgress.Percentage != 50 {
		t.Fatalf("todaysProgress %+v", dash.TodaysProgress)
	}
	if dash.StudyStreak != 2 {
		t.Fatalf("studyStreak = %d, want 2", dash.StudyStreak)
	}
	if dash.NextSession == nil || dash.NextSession.Title != "Morning review" {
		t.Fatalf("nextSession %+v", dash.NextSession)
	}
	if len(dash.UpcomingAssignments) != 1 || dash.UpcomingAssignments[0].Title != "Anatomy CAT" {
		t.Fatalf("upcomingAssignments %+v", dash.UpcomingAssignments)
	}
	if dash.UpcomingAssignments[0].Urgency != domain.UrgencyHigh {
		t.Fatalf("urgency = %q, want high", dash.UpcomingAssignments[0].Urgency)
	}
}

func TestGeneratePlanUsesUnitsAndDeadlines(t *testing.T) {
	gen := &scriptedGenerator{reply: `{"schedule": [{"day": "Monday", "sessions": []}]}`}
	a := newTestApp(t, gen)
	ctx := context.Background()
	units, _ := a.Units()

	if _, err := a.CreateAssignment(domain.Assignment{
		Title:    "Physiology exam",
		Type:     domain.TypeExam,
		Deadline: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		UnitID:   &units[2].ID,
	}); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	plan, err := a.GeneratePlan(ctx, 0)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if len(plan.Schedule) != 1 {
		t.Fatalf("plan %+v", plan)
	}
	for _, want := range []string{"Anatomy", "Immunology", "Physiology", "40/80"} {
		if !strings.Contains(gen.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSearchSkipsDocumentsWithoutText(t *testing.T) {
	gen := &scriptedGenerator{reply: `{"documents": []}`}
	a := newTestApp(t, gen)
	ctx := context.Background()
	units, _ := a.Units()

	if _, err := a.UploadDocument(ctx, units[0].ID, "scan.pdf", "application/pdf", []byte("no text here")); err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if _, err := a.UploadDocument(ctx, units[0].ID, "notes.docx", docxMime, docxFixture(t, "The heart pumps blood.")); err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}

	if _, err := a.Search(ctx, "circulation"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if strings.Contains(gen.lastUser, "scan.pdf") {
		t.Errorf("prompt includes textless document: %q", gen.lastUser)
	}
	if !strings.Contains(gen.lastUser, "notes.docx") {
		t.Errorf("prompt missing searchable document: %q", gen.lastUser)
	}
}

func TestNoteLifecycle(t *testing.T) {
	a := newTestApp(t, nil)
	units, _ := a.Units()

	note, err := a.CreateNote(units[1].ID, "antibodies bind antigens", nil)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	updated, err := a.UpdateNote(note.ID, "antibodies bind specific antigens")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Content != "antibodies bind specific antigens" {
		t.Fatalf("content = %q", updated.Content)
	}
	if err := a.DeleteNote(note.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if err := a.DeleteNote(note.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("second delete err = %v, want ErrNoteNotFound", err)
	}
}

func TestStudyPlanDateFilter(t *testing.T) {
	a := newTestApp(t, nil)

	for _, day := range []string{"2025-03-05", "2025-03-06"} {
		date, _ := time.Parse("2006-01-02", day)
		if _, err := a.CreatePlanEntry(domain.StudyPlanEntry{
			Title: "Session " + day, ScheduledDate: date, StartTime: "09:00", EndTime: "10:00",
		}); err != nil {
			t.Fatalf("CreatePlanEntry: %v", err)
		}
	}

	all, err := a.StudyPlan("")
	if err != nil {
		t.Fatalf("StudyPlan: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all entries = %d, want 2", len(all))
	}

	day, err := a.StudyPlan("2025-03-06")
	if err != nil {
		t.Fatalf("StudyPlan: %v", err)
	}
	if len(day) != 1 || day[0].Title != "Session 2025-03-06" {
		t.Fatalf("filtered entries %+v", day)
	}

	if _, err := a.StudyPlan("06/03/2025"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestUpdateAssignmentRejectsUnknownType(t *testing.T) {
	a := newTestApp(t, &scriptedGenerator{})

	created, err := a.CreateAssignment(domain.Assignment{
		Title: "Immunology CAT", Type: domain.TypeCAT,
		Deadline: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	bogus := domain.AssignmentType("bogus")
	if _, err := a.UpdateAssignment(created.ID, store.AssignmentUpdate{Type: &bogus}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	kept, ok, err := a.store.GetAssignment(created.ID)
	if err != nil || !ok {
		t.Fatalf("GetAssignment: ok=%v err=%v", ok, err)
	}
	if kept.Type != domain.TypeCAT {
		t.Fatalf("type = %q, want %q", kept.Type, domain.TypeCAT)
	}

	exam := domain.TypeExam
	updated, err := a.UpdateAssignment(created.ID, store.AssignmentUpdate{Type: &exam})
	if err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}
	if updated.Type != domain.TypeExam {
		t.Fatalf("type = %q, want %q", updated.Type, domain.TypeExam)
	}
}
