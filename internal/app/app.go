package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studycompanion/internal/ingest"
	"studycompanion/internal/progress"
	"studycompanion/pkg/ai"
	"studycompanion/pkg/domain"
	"studycompanion/pkg/storage"
	"studycompanion/pkg/store"
)

const (
	seedUsername = "mitch"
	seedName     = "Mitchell"
	seedPace     = 40

	dateLayout = "2006-01-02"
)

var seedUnits = []domain.Unit{
	{Name: "Anatomy", Description: "Human anatomy and physiology structures", Color: "#8FBC8F"},
	{Name: "Immunology", Description: "Immune system and defense mechanisms", Color: "#DAA520"},
	{Name: "Physiology", Description: "Body functions and processes", Color: "#B8B8B8"},
}

// Config holds runtime configuration for the core application.
type Config struct {
	Store          store.Store
	Objects        storage.ObjectStore
	Assistant      *ai.Assistant
	MaxUploadBytes int64
	HistoryLimit   int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// App is the core application service wiring storage, blobs, and the
// assistant together for the single study user.
type App struct {
	store          store.Store
	objects        storage.ObjectStore
	assistant      *ai.Assistant
	maxUploadBytes int64
	historyLimit   int
	now            func() time.Time
	userID         int64
}

// New constructs the application and seeds the study user and default units
// on first run.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.Assistant == nil {
		return nil, fmt.Errorf("assistant required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 10
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	a := &App{
		store:          cfg.Store,
		objects:        cfg.Objects,
		assistant:      cfg.Assistant,
		maxUploadBytes: maxUploadBytes,
		historyLimit:   historyLimit,
		now:            now,
	}
	if err := a.seed(); err != nil {
		return nil, fmt.Errorf("seed data: %w", err)
	}
	return a, nil
}

func (a *App) seed() error {
	user, ok, err := a.store.GetUserByUsername(seedUsername)
	if err != nil {
		return err
	}
	if ok {
		a.userID = user.ID
		return nil
	}
	user, err = a.store.CreateUser(domain.User{
		Username: seedUsername,
		Name:     seedName,
		Pace:     seedPace,
	})
	if err != nil {
		return err
	}
	a.userID = user.ID
	for _, unit := range seedUnits {
		unit.UserID = user.ID
		if _, err := a.store.CreateUnit(unit); err != nil {
			return err
		}
	}
	slog.Info("seeded study user", "username", seedUsername, "units", len(seedUnits))
	return nil
}

// CurrentUser returns the single study user.
func (a *App) CurrentUser() (domain.User, error) {
	user, ok, err := a.store.GetUser(a.userID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdatePace sets the user's learning pace (1 relaxed .. 80 intensive).
func (a *App) UpdatePace(pace int) (domain.User, error) {
	if pace < 1 || pace > 80 {
		return domain.User{}, ErrInvalidPace
	}
	user, err := a.store.UpdateUserPace(a.userID, pace)
	if err != nil {
		return domain.User{}, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// Units returns all units annotated with progress metrics.
func (a *App) Units() ([]progress.UnitView, error) {
	units, err := a.store.ListUnits(a.userID)
	if err != nil {
		return nil, err
	}
	views := make([]progress.UnitView, 0, len(units))
	for _, unit := range units {
		docs, err := a.store.ListDocuments(unit.ID)
		if err != nil {
			return nil, err
		}
		notes, err := a.store.ListNotes(unit.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, progress.BuildUnitView(unit, len(docs), len(notes)))
	}
	return views, nil
}

// CreateUnit adds a new study unit.
func (a *App) CreateUnit(name, description, color string) (domain.Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Unit{}, fmt.Errorf("%w: unit name required", ErrValidation)
	}
	if strings.TrimSpace(color) == "" {
		color = "#8FBC8F"
	}
	return a.store.CreateUnit(domain.Unit{
		Name:        name,
		Description: strings.TrimSpace(description),
		Color:       color,
		UserID:      a.userID,
	})
}

// DeleteUnit removes a unit together with its documents (including stored
// blobs), notes, and summaries.
func (a *App) DeleteUnit(ctx context.Context, id int64) error {
	if _, err := a.unit(id); err != nil {
		return err
	}
	docs, err := a.store.ListDocuments(id)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := a.deleteDocument(ctx, doc); err != nil {
			return err
		}
	}
	notes, err := a.store.ListNotes(id)
	if err != nil {
		return err
	}
	for _, note := range notes {
		if err := a.store.DeleteNote(note.ID); err != nil {
			return err
		}
	}
	summaries, err := a.store.ListSummaries(a.userID)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		if summary.UnitID != nil && *summary.UnitID == id {
			if err := a.store.DeleteSummary(summary.ID); err != nil {
				return err
			}
		}
	}
	return a.store.DeleteUnit(id)
}

// UnitDocuments lists the documents uploaded to a unit.
func (a *App) UnitDocuments(unitID int64) ([]domain.Document, error) {
	if _, err := a.unit(unitID); err != nil {
		return nil, err
	}
	return a.store.ListDocuments(unitID)
}

// UploadDocument validates, stores, and indexes an uploaded file. Text
// extraction is best effort: a document whose text cannot be read is still
// stored, it just cannot be summarized or searched.
func (a *App) UploadDocument(ctx context.Context, unitID int64, originalName, mimeType string, content []byte) (domain.Document, error) {
	if _, err := a.unit(unitID); err != nil {
		return domain.Document{}, err
	}
	if err := ingest.ValidateUpload(mimeType, int64(len(content)), a.maxUploadBytes); err != nil {
		return domain.Document{}, err
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	if err := a.objects.Put(ctx, key, bytes.NewReader(content), int64(len(content)), mimeType); err != nil {
		return domain.Document{}, fmt.Errorf("store upload: %w", err)
	}

	extractedText, err := ingest.ExtractText(content, mimeType)
	if err != nil {
		slog.Warn("text extraction failed", "file", originalName, "error", err)
		extractedText = ""
	}

	doc, err := a.store.CreateDocument(domain.Document{
		Filename:      key,
		OriginalName:  originalName,
		MimeType:      mimeType,
		Size:          int64(len(content)),
		ExtractedText: extractedText,
		StorageKey:    key,
		UnitID:        unitID,
		UserID:        a.userID,
	})
	if err != nil {
		if delErr := a.objects.Delete(ctx, key); delErr != nil {
			slog.Warn("orphaned blob after failed create", "key", key, "error", delErr)
		}
		return domain.Document{}, err
	}
	return doc, nil
}

// DeleteDocument removes a document record and its stored blob.
func (a *App) DeleteDocument(ctx context.Context, id int64) error {
	doc, ok, err := a.store.GetDocument(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDocumentNotFound
	}
	return a.deleteDocument(ctx, doc)
}

func (a *App) deleteDocument(ctx context.Context, doc domain.Document) error {
	if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
		slog.Warn("delete blob", "key", doc.StorageKey, "error", err)
	}
	summaries, err := a.store.ListSummaries(a.userID)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		if summary.DocumentID != nil && *summary.DocumentID == doc.ID {
			if err := a.store.DeleteSummary(summary.ID); err != nil {
				return err
			}
		}
	}
	return a.store.DeleteDocument(doc.ID)
}

// OpenDocument returns a document record and a reader over its original
// bytes. The caller closes the reader.
func (a *App) OpenDocument(ctx context.Context, id int64) (domain.Document, io.ReadCloser, error) {
	doc, ok, err := a.store.GetDocument(id)
	if err != nil {
		return domain.Document{}, nil, err
	}
	if !ok {
		return domain.Document{}, nil, ErrDocumentNotFound
	}
	r, err := a.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return domain.Document{}, nil, fmt.Errorf("open blob: %w", err)
	}
	return doc, r, nil
}

// UnitNotes lists the notes attached to a unit.
func (a *App) UnitNotes(unitID int64) ([]domain.Note, error) {
	if _, err := a.unit(unitID); err != nil {
		return nil, err
	}
	return a.store.ListNotes(unitID)
}

// CreateNote adds a note to a unit, optionally linked to a document.
func (a *App) CreateNote(unitID int64, content string, documentID *int64) (domain.Note, error) {
	if _, err := a.unit(unitID); err != nil {
		return domain.Note{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.Note{}, fmt.Errorf("%w: note content required", ErrValidation)
	}
	return a.store.CreateNote(domain.Note{
		Content:    content,
		DocumentID: documentID,
		UnitID:     unitID,
		UserID:     a.userID,
	})
}

// UpdateNote replaces a note's content.
func (a *App) UpdateNote(id int64, content string) (domain.Note, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Note{}, fmt.Errorf("%w: note content required", ErrValidation)
	}
	note, err := a.store.UpdateNote(id, content)
	if err != nil {
		return domain.Note{}, mapNotFound(err, ErrNoteNotFound)
	}
	return note, nil
}

// DeleteNote removes a note.
func (a *App) DeleteNote(id int64) error {
	return mapNotFound(a.store.DeleteNote(id), ErrNoteNotFound)
}

// SummarizeDocument generates an unapproved summary of a document's
// extracted text.
func (a *App) SummarizeDocument(ctx context.Context, documentID int64) (domain.Summary, error) {
	doc, ok, err := a.store.GetDocument(documentID)
	if err != nil {
		return domain.Summary{}, err
	}
	if !ok {
		return domain.Summary{}, ErrDocumentNotFound
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return domain.Summary{}, ErrNoExtractedText
	}
	content, err := a.assistant.Summarize(ctx, ai.SummaryRequest{
		Text:     doc.ExtractedText,
		Context:  "Document: " + doc.OriginalName,
		MaxWords: 500,
	})
	if err != nil {
		return domain.Summary{}, err
	}
	return a.store.CreateSummary(domain.Summary{
		Content:    content,
		DocumentID: &doc.ID,
		UnitID:     &doc.UnitID,
		UserID:     a.userID,
	})
}

// Summaries lists all summaries for the user.
func (a *App) Summaries() ([]domain.Summary, error) {
	return a.store.ListSummaries(a.userID)
}

// ApproveSummary marks a summary as user-approved.
func (a *App) ApproveSummary(id int64) (domain.Summary, error) {
	summary, err := a.store.ApproveSummary(id)
	if err != nil {
		return domain.Summary{}, mapNotFound(err, ErrSummaryNotFound)
	}
	return summary, nil
}

// DeleteSummary removes a summary.
func (a *App) DeleteSummary(id int64) error {
	return mapNotFound(a.store.DeleteSummary(id), ErrSummaryNotFound)
}

// Assignments returns all assignments annotated with urgency, sorted by
// deadline.
func (a *App) Assignments() ([]progress.AssignmentView, error) {
	assignments, err := a.store.ListAssignments(a.userID)
	if err != nil {
		return nil, err
	}
	return progress.AnnotateAssignments(assignments, a.now()), nil
}

// CreateAssignment adds an assignment or assessment deadline.
func (a *App) CreateAssignment(assignment domain.Assignment) (domain.Assignment, error) {
	if strings.TrimSpace(assignment.Title) == "" {
		return domain.Assignment{}, fmt.Errorf("%w: assignment title required", ErrValidation)
	}
	if assignment.Deadline.IsZero() {
		return domain.Assignment{}, fmt.Errorf("%w: assignment deadline required", ErrValidation)
	}
	switch assignment.Type {
	case domain.TypeAssignment, domain.TypeCAT, domain.TypeExam:
	case "":
		assignment.Type = domain.TypeAssignment
	default:
		return domain.Assignment{}, fmt.Errorf("%w: unknown assignment type %q", ErrValidation, assignment.Type)
	}
	assignment.UserID = a.userID
	assignment.Completed = false
	return a.store.CreateAssignment(assignment)
}

// UpdateAssignment applies a partial update to an assignment.
func (a *App) UpdateAssignment(id int64, update store.AssignmentUpdate) (domain.Assignment, error) {
	if update.Type != nil {
		switch *update.Type {
		case domain.TypeAssignment, domain.TypeCAT, domain.TypeExam:
		default:
			return domain.Assignment{}, fmt.Errorf("%w: unknown assignment type %q", ErrValidation, *update.Type)
		}
	}
	assignment, err := a.store.UpdateAssignment(id, update)
	if err != nil {
		return domain.Assignment{}, mapNotFound(err, ErrAssignmentNotFound)
	}
	return assignment, nil
}

// DeleteAssignment removes an assignment.
func (a *App) DeleteAssignment(id int64) error {
	return mapNotFound(a.store.DeleteAssignment(id), ErrAssignmentNotFound)
}

// StudyPlan lists plan entries, optionally filtered to one date
// ("2006-01-02").
func (a *App) StudyPlan(date string) ([]domain.StudyPlanEntry, error) {
	entries, err := a.store.ListPlanEntries(a.userID)
	if err != nil {
		return nil, err
	}
	if date == "" {
		return entries, nil
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}
	filtered := make([]domain.StudyPlanEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ScheduledDate.UTC().Format(dateLayout) == day.Format(dateLayout) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// CreatePlanEntry schedules a study block.
func (a *App) CreatePlanEntry(entry domain.StudyPlanEntry) (domain.StudyPlanEntry, error) {
	if strings.TrimSpace(entry.Title) == "" {
		return domain.StudyPlanEntry{}, fmt.Errorf("%w: plan entry title required", ErrValidation)
	}
	if entry.ScheduledDate.IsZero() {
		return domain.StudyPlanEntry{}, fmt.Errorf("%w: plan entry scheduledDate required", ErrValidation)
	}
	entry.UserID = a.userID
	entry.Completed = false
	return a.store.CreatePlanEntry(entry)
}

// CompletePlanEntry marks a scheduled block done.
func (a *App) CompletePlanEntry(id int64) (domain.StudyPlanEntry, error) {
	entry, err := a.store.CompletePlanEntry(id)
	if err != nil {
		return domain.StudyPlanEntry{}, mapNotFound(err, ErrPlanEntryNotFound)
	}
	return entry, nil
}

// DeletePlanEntry removes a scheduled block.
func (a *App) DeletePlanEntry(id int64) error {
	return mapNotFound(a.store.DeletePlanEntry(id), ErrPlanEntryNotFound)
}

// SessionResult is a recorded study session plus an optional break
// suggestion when the day's total crosses the rest threshold.
type SessionResult struct {
	Session         domain.StudySession `json:"session"`
	BreakSuggestion string              `json:"breakSuggestion,omitempty"`
}

// RecordSession upserts the study session for a date, accumulating minutes
// and topics into the existing record when one exists.
func (a *App) RecordSession(date string, minutesStudied, topicsCompleted int) (SessionResult, error) {
	if date == "" {
		date = a.now().UTC().Format(dateLayout)
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return SessionResult{}, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}
	if minutesStudied < 0 || topicsCompleted < 0 {
		return SessionResult{}, fmt.Errorf("%w: minutesStudied and topicsCompleted must be non-negative", ErrValidation)
	}

	existing, ok, err := a.store.GetSessionByDate(a.userID, date)
	if err != nil {
		return SessionResult{}, err
	}
	var session domain.StudySession
	if ok {
		session, err = a.store.UpdateSession(existing.ID, existing.MinutesStudied+minutesStudied, existing.TopicsCompleted+topicsCompleted)
	} else {
		session, err = a.store.CreateSession(domain.StudySession{
			Date:            date,
			MinutesStudied:  minutesStudied,
			TopicsCompleted: topicsCompleted,
			UserID:          a.userID,
		})
	}
	if err != nil {
		return SessionResult{}, err
	}

	result := SessionResult{Session: session}
	if msg, ok := a.assistant.SuggestBreak(session.MinutesStudied, day.Weekday()); ok {
		result.BreakSuggestion = msg
	}
	return result, nil
}

// Sessions lists recent study sessions, newest first.
func (a *App) Sessions(limit int) ([]domain.StudySession, error) {
	return a.store.ListSessions(a.userID, limit)
}

// ChatMessages returns the recent chat log, oldest first.
func (a *App) ChatMessages(limit int) ([]domain.ChatMessage, error) {
	return a.store.ListChatMessages(a.userID, limit)
}

// Chat exchanges one conversational turn with the assistant and persists
// both sides of it.
func (a *App) Chat(ctx context.Context, message string) (domain.ChatMessage, []string, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatMessage{}, nil, fmt.Errorf("%w: message required", ErrValidation)
	}
	recent, err := a.store.ListChatMessages(a.userID, a.historyLimit)
	if err != nil {
		return domain.ChatMessage{}, nil, err
	}
	history := make([]ai.Turn, 0, len(recent))
	for _, msg := range recent {
		history = append(history, ai.Turn{Role: string(msg.Role), Content: msg.Content})
	}

	if _, err := a.store.CreateChatMessage(domain.ChatMessage{
		Content: message,
		Role:    domain.RoleUser,
		UserID:  a.userID,
	}); err != nil {
		return domain.ChatMessage{}, nil, err
	}

	reply, err := a.assistant.Chat(ctx, message, history)
	if err != nil {
		return domain.ChatMessage{}, nil, err
	}

	saved, err := a.store.CreateChatMessage(domain.ChatMessage{
		Content: reply.Content,
		Role:    domain.RoleAssistant,
		UserID:  a.userID,
	})
	if err != nil {
		return domain.ChatMessage{}, nil, err
	}
	return saved, reply.Suggestions, nil
}

// GeneratePlan asks the assistant for a weekly schedule built from the
// user's units, open assignment deadlines, and pace.
func (a *App) GeneratePlan(ctx context.Context, availableHours int) (ai.StudyPlan, error) {
	if availableHours <= 0 {
		availableHours = 4
	}
	user, err := a.CurrentUser()
	if err != nil {
		return ai.StudyPlan{}, err
	}
	units, err := a.store.ListUnits(a.userID)
	if err != nil {
		return ai.StudyPlan{}, err
	}
	subjects := make([]string, 0, len(units))
	unitNames := make(map[int64]string, len(units))
	for _, unit := range units {
		subjects = append(subjects, unit.Name)
		unitNames[unit.ID] = unit.Name
	}
	assignments, err := a.store.ListAssignments(a.userID)
	if err != nil {
		return ai.StudyPlan{}, err
	}
	deadlines := make([]ai.Deadline, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.Completed {
			continue
		}
		subject := assignment.Title
		if assignment.UnitID != nil {
			if name, ok := unitNames[*assignment.UnitID]; ok {
				subject = name
			}
		}
		deadlines = append(deadlines, ai.Deadline{
			Subject: subject,
			Date:    assignment.Deadline,
			Type:    string(assignment.Type),
		})
	}
	return a.assistant.GenerateStudyPlan(ctx, ai.PlanRequest{
		Subjects:       subjects,
		Deadlines:      deadlines,
		Pace:           user.Pace,
		AvailableHours: availableHours,
	})
}

// GenerateQuiz asks the assistant for a quiz on a topic.
func (a *App) GenerateQuiz(ctx context.Context, topic, difficulty string, count int) (ai.Quiz, error) {
	return a.assistant.GenerateQuiz(ctx, topic, difficulty, count)
}

// Search ranks the user's documents against a query using the assistant.
// Documents without extracted text are skipped.
func (a *App) Search(ctx context.Context, query string) ([]ai.RankedDocument, error) {
	units, err := a.store.ListUnits(a.userID)
	if err != nil {
		return nil, err
	}
	var refs []ai.DocumentRef
	for _, unit := range units {
		docs, err := a.store.ListDocuments(unit.ID)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if strings.TrimSpace(doc.ExtractedText) == "" {
				continue
			}
			refs = append(refs, ai.DocumentRef{
				ID:      doc.ID,
				Title:   doc.OriginalName,
				Content: doc.ExtractedText,
			})
		}
	}
	return a.assistant.FindRelevantContent(ctx, query, refs)
}

// Dashboard is the aggregate home view for the study user.
type Dashboard struct {
	User                domain.User               `json:"user"`
	TodaysProgress      TodaysProgress            `json:"todaysProgress"`
	StudyStreak         int                       `json:"studyStreak"`
	NextSession         *domain.StudyPlanEntry    `json:"nextSession"`
	UpcomingAssignments []progress.AssignmentView `json:"upcomingAssignments"`
}

// TodaysProgress summarizes today's study plan completion.
type TodaysProgress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// BuildDashboard gathers the dashboard's independent sections concurrently.
func (a *App) BuildDashboard(ctx context.Context) (Dashboard, error) {
	now := a.now()

	var (
		dash   Dashboard
		daily  progress.DailyPlanView
		streak int
	)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := a.CurrentUser()
		if err != nil {
			return err
		}
		dash.User = user
		return nil
	})
	g.Go(func() error {
		entries, err := a.store.ListPlanEntries(a.userID)
		if err != nil {
			return err
		}
		daily = progress.BuildDailyPlan(entries, now)
		return nil
	})
	g.Go(func() error {
		sessions, err := a.store.ListSessions(a.userID, 30)
		if err != nil {
			return err
		}
		streak = progress.Streak(sessions, now)
		return nil
	})
	g.Go(func() error {
		assignments, err := a.store.ListAssignments(a.userID)
		if err != nil {
			return err
		}
		dash.UpcomingAssignments = progress.UpcomingAssignments(assignments, now, 3)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	dash.TodaysProgress = TodaysProgress{
		Completed:  daily.CompletedCount,
		Total:      daily.TotalCount,
		Percentage: daily.Percentage,
	}
	dash.StudyStreak = streak
	dash.NextSession = daily.NextSession()
	return dash, nil
}

func (a *App) unit(id int64) (domain.Unit, error) {
	unit, ok, err := a.store.GetUnit(id)
	if err != nil {
		return domain.Unit{}, err
	}
	if !ok {
		return domain.Unit{}, ErrUnitNotFound
	}
	return unit, nil
}

func mapNotFound(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}
