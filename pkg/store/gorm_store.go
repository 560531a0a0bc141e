package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studycompanion/pkg/domain"
)

const migrateLockID int64 = 52905290

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, runs auto-migrations, and ensures the
// shared id sequence exists.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{}, &UnitModel{}, &DocumentModel{}, &NoteModel{},
			&SummaryModel{}, &AssignmentModel{}, &StudyPlanEntryModel{},
			&StudySessionModel{}, &ChatMessageModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// One sequence feeds every table so ids stay unique across kinds.
		if err := tx.Exec("CREATE SEQUENCE IF NOT EXISTS record_ids").Error; err != nil {
			return fmt.Errorf("create id sequence: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func (s *GormStore) allocID(tx *gorm.DB) (int64, error) {
	var id int64
	if err := tx.Raw("SELECT nextval('record_ids')").Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("alloc id: %w", err)
	}
	return id, nil
}

// GetUser returns a user by id.
func (s *GormStore) GetUser(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateUser registers a user.
func (s *GormStore) CreateUser(user domain.User) (domain.User, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		user.ID = id
		user.CreatedAt = time.Now().UTC()
		model := userToModel(user)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateUserPace sets a user's pace dial.
func (s *GormStore) UpdateUserPace(id int64, pace int) (domain.User, error) {
	res := s.db.Model(&UserModel{}).Where("id = ?", id).Update("pace", pace)
	if res.Error != nil {
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, ErrNotFound
	}
	user, _, err := s.GetUser(id)
	return user, err
}

// ListUnits returns a user's units in creation order.
func (s *GormStore) ListUnits(userID int64) ([]domain.Unit, error) {
	var models []UnitModel
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Unit, 0, len(models))
	for _, m := range models {
		res = append(res, unitFromModel(m))
	}
	return res, nil
}

// GetUnit retrieves a unit.
func (s *GormStore) GetUnit(id int64) (domain.Unit, bool, error) {
	var model UnitModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Unit{}, false, nil
		}
		return domain.Unit{}, false, err
	}
	return unitFromModel(model), true, nil
}

// CreateUnit stores a new unit.
func (s *GormStore) CreateUnit(unit domain.Unit) (domain.Unit, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		unit.ID = id
		unit.CreatedAt = time.Now().UTC()
		model := unitToModel(unit)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Unit{}, err
	}
	return unit, nil
}

// DeleteUnit removes a unit.
func (s *GormStore) DeleteUnit(id int64) error {
	res := s.db.Delete(&UnitModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDocuments returns a unit's documents in creation order.
func (s *GormStore) ListDocuments(unitID int64) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.Where("unit_id = ?", unitID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(models))
	for _, m := range models {
		res = append(res, documentFromModel(m))
	}
	return res, nil
}

// GetDocument retrieves a document.
func (s *GormStore) GetDocument(id int64) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// CreateDocument stores a new document record.
func (s *GormStore) CreateDocument(doc domain.Document) (domain.Document, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		doc.ID = id
		doc.CreatedAt = time.Now().UTC()
		model := documentToModel(doc)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// DeleteDocument removes a document record.
func (s *GormStore) DeleteDocument(id int64) error {
	res := s.db.Delete(&DocumentModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNotes returns a unit's notes in creation order.
func (s *GormStore) ListNotes(unitID int64) ([]domain.Note, error) {
	var models []NoteModel
	if err := s.db.Where("unit_id = ?", unitID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Note, 0, len(models))
	for _, m := range models {
		res = append(res, noteFromModel(m))
	}
	return res, nil
}

// GetNote retrieves a note.
func (s *GormStore) GetNote(id int64) (domain.Note, bool, error) {
	var model NoteModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Note{}, false, nil
		}
		return domain.Note{}, false, err
	}
	return noteFromModel(model), true, nil
}

// CreateNote stores a new note.
func (s *GormStore) CreateNote(note domain.Note) (domain.Note, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		note.ID = id
		now := time.Now().UTC()
		note.CreatedAt = now
		note.UpdatedAt = now
		model := noteToModel(note)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// UpdateNote replaces a note's content.
func (s *GormStore) UpdateNote(id int64, content string) (domain.Note, error) {
	res := s.db.Model(&NoteModel{}).Where("id = ?", id).Updates(map[string]any{
		"content":    content,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return domain.Note{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Note{}, ErrNotFound
	}
	note, _, err := s.GetNote(id)
	return note, err
}

// DeleteNote removes a note.
func (s *GormStore) DeleteNote(id int64) error {
	res := s.db.Delete(&NoteModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSummaries returns a user's summaries in creation order.
func (s *GormStore) ListSummaries(userID int64) ([]domain.Summary, error) {
	var models []SummaryModel
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Summary, 0, len(models))
	for _, m := range models {
		res = append(res, summaryFromModel(m))
	}
	return res, nil
}

// GetSummary retrieves a summary.
func (s *GormStore) GetSummary(id int64) (domain.Summary, bool, error) {
	var model SummaryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Summary{}, false, nil
		}
		return domain.Summary{}, false, err
	}
	return summaryFromModel(model), true, nil
}

// CreateSummary stores a new summary. Approved always starts false.
func (s *GormStore) CreateSummary(summary domain.Summary) (domain.Summary, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		summary.ID = id
		summary.Approved = false
		summary.CreatedAt = time.Now().UTC()
		model := summaryToModel(summary)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

// ApproveSummary flips the approval gate.
func (s *GormStore) ApproveSummary(id int64) (domain.Summary, error) {
	res := s.db.Model(&SummaryModel{}).Where("id = ?", id).Update("approved", true)
	if res.Error != nil {
		return domain.Summary{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Summary{}, ErrNotFound
	}
	summary, _, err := s.GetSummary(id)
	return summary, err
}

// DeleteSummary removes a summary.
func (s *GormStore) DeleteSummary(id int64) error {
	res := s.db.Delete(&SummaryModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAssignments returns a user's assignments in creation order.
func (s *GormStore) ListAssignments(userID int64) ([]domain.Assignment, error) {
	var models []AssignmentModel
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Assignment, 0, len(models))
	for _, m := range models {
		res = append(res, assignmentFromModel(m))
	}
	return res, nil
}

// GetAssignment retrieves an assignment.
func (s *GormStore) GetAssignment(id int64) (domain.Assignment, bool, error) {
	var model AssignmentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Assignment{}, false, nil
		}
		return domain.Assignment{}, false, err
	}
	return assignmentFromModel(model), true, nil
}

// CreateAssignment stores a new assignment.
func (s *GormStore) CreateAssignment(assignment domain.Assignment) (domain.Assignment, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		assignment.ID = id
		assignment.CreatedAt = time.Now().UTC()
		model := assignmentToModel(assignment)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return assignment, nil
}

// UpdateAssignment applies a partial update.
func (s *GormStore) UpdateAssignment(id int64, update AssignmentUpdate) (domain.Assignment, error) {
	updates := map[string]any{}
	if update.Title != nil {
		updates["title"] = *update.Title
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Type != nil {
		updates["type"] = string(*update.Type)
	}
	if update.Questions != nil {
		updates["questions"] = *update.Questions
	}
	if update.Deadline != nil {
		updates["deadline"] = update.Deadline.UTC()
	}
	if update.UnitID != nil {
		updates["unit_id"] = *update.UnitID
	}
	if update.Completed != nil {
		updates["completed"] = *update.Completed
	}
	if len(updates) > 0 {
		res := s.db.Model(&AssignmentModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return domain.Assignment{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Assignment{}, ErrNotFound
		}
	}
	assignment, ok, err := s.GetAssignment(id)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !ok {
		return domain.Assignment{}, ErrNotFound
	}
	return assignment, nil
}

// DeleteAssignment removes an assignment.
func (s *GormStore) DeleteAssignment(id int64) error {
	res := s.db.Delete(&AssignmentModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlanEntries returns all plan entries for a user in creation order.
func (s *GormStore) ListPlanEntries(userID int64) ([]domain.StudyPlanEntry, error) {
	var models []StudyPlanEntryModel
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.StudyPlanEntry, 0, len(models))
	for _, m := range models {
		res = append(res, planEntryFromModel(m))
	}
	return res, nil
}

// GetPlanEntry retrieves a plan entry.
func (s *GormStore) GetPlanEntry(id int64) (domain.StudyPlanEntry, bool, error) {
	var model StudyPlanEntryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyPlanEntry{}, false, nil
		}
		return domain.StudyPlanEntry{}, false, err
	}
	return planEntryFromModel(model), true, nil
}

// CreatePlanEntry stores a new plan entry.
func (s *GormStore) CreatePlanEntry(entry domain.StudyPlanEntry) (domain.StudyPlanEntry, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		entry.ID = id
		entry.CreatedAt = time.Now().UTC()
		model := planEntryToModel(entry)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.StudyPlanEntry{}, err
	}
	return entry, nil
}

// CompletePlanEntry marks a plan entry as done.
func (s *GormStore) CompletePlanEntry(id int64) (domain.StudyPlanEntry, error) {
	res := s.db.Model(&StudyPlanEntryModel{}).Where("id = ?", id).Update("completed", true)
	if res.Error != nil {
		return domain.StudyPlanEntry{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.StudyPlanEntry{}, ErrNotFound
	}
	entry, _, err := s.GetPlanEntry(id)
	return entry, err
}

// DeletePlanEntry removes a plan entry.
func (s *GormStore) DeletePlanEntry(id int64) error {
	res := s.db.Delete(&StudyPlanEntryModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns sessions newest-date first, capped at limit.
func (s *GormStore) ListSessions(userID int64, limit int) ([]domain.StudySession, error) {
	query := s.db.Where("user_id = ?", userID).Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []StudySessionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.StudySession, 0, len(models))
	for _, m := range models {
		res = append(res, sessionFromModel(m))
	}
	return res, nil
}

// GetSessionByDate finds a user's session for one calendar day.
func (s *GormStore) GetSessionByDate(userID int64, date string) (domain.StudySession, bool, error) {
	var model StudySessionModel
	if err := s.db.First(&model, "user_id = ? AND date = ?", userID, date).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudySession{}, false, nil
		}
		return domain.StudySession{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// CreateSession stores a new daily session record.
func (s *GormStore) CreateSession(session domain.StudySession) (domain.StudySession, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		session.ID = id
		session.CreatedAt = time.Now().UTC()
		model := sessionToModel(session)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.StudySession{}, err
	}
	return session, nil
}

// UpdateSession sets the accumulated totals for a session.
func (s *GormStore) UpdateSession(id int64, minutesStudied, topicsCompleted int) (domain.StudySession, error) {
	res := s.db.Model(&StudySessionModel{}).Where("id = ?", id).Updates(map[string]any{
		"minutes_studied":  minutesStudied,
		"topics_completed": topicsCompleted,
	})
	if res.Error != nil {
		return domain.StudySession{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.StudySession{}, ErrNotFound
	}
	var model StudySessionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.StudySession{}, err
	}
	return sessionFromModel(model), nil
}

// ListChatMessages returns the most recent messages in chronological
// order (newest first query, then reversed).
func (s *GormStore) ListChatMessages(userID int64, limit int) ([]domain.ChatMessage, error) {
	query := s.db.Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []ChatMessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		msgs = append(msgs, messageFromModel(models[i]))
	}
	return msgs, nil
}

// CreateChatMessage appends a message to the log.
func (s *GormStore) CreateChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.allocID(tx)
		if err != nil {
			return err
		}
		msg.ID = id
		msg.CreatedAt = time.Now().UTC()
		model := messageToModel(msg)
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{ID: u.ID, Username: u.Username, Name: u.Name, Pace: u.Pace, CreatedAt: u.CreatedAt}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{ID: m.ID, Username: m.Username, Name: m.Name, Pace: m.Pace, CreatedAt: m.CreatedAt}
}

func unitToModel(u domain.Unit) UnitModel {
	return UnitModel{ID: u.ID, Name: u.Name, Description: u.Description, Color: u.Color, UserID: u.UserID, CreatedAt: u.CreatedAt}
}

func unitFromModel(m UnitModel) domain.Unit {
	return domain.Unit{ID: m.ID, Name: m.Name, Description: m.Description, Color: m.Color, UserID: m.UserID, CreatedAt: m.CreatedAt}
}

func documentToModel(d domain.Document) DocumentModel {
	return DocumentModel{
		ID: d.ID, Filename: d.Filename, OriginalName: d.OriginalName,
		MimeType: d.MimeType, Size: d.Size, ExtractedText: d.ExtractedText,
		StorageKey: d.StorageKey, UnitID: d.UnitID, UserID: d.UserID, CreatedAt: d.CreatedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		ID: m.ID, Filename: m.Filename, OriginalName: m.OriginalName,
		MimeType: m.MimeType, Size: m.Size, ExtractedText: m.ExtractedText,
		StorageKey: m.StorageKey, UnitID: m.UnitID, UserID: m.UserID, CreatedAt: m.CreatedAt,
	}
}

func noteToModel(n domain.Note) NoteModel {
	return NoteModel{
		ID: n.ID, Content: n.Content, DocumentID: n.DocumentID,
		UnitID: n.UnitID, UserID: n.UserID, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func noteFromModel(m NoteModel) domain.Note {
	return domain.Note{
		ID: m.ID, Content: m.Content, DocumentID: m.DocumentID,
		UnitID: m.UnitID, UserID: m.UserID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func summaryToModel(s domain.Summary) SummaryModel {
	return SummaryModel{
		ID: s.ID, Content: s.Content, Approved: s.Approved,
		DocumentID: s.DocumentID, UnitID: s.UnitID, UserID: s.UserID, CreatedAt: s.CreatedAt,
	}
}

func summaryFromModel(m SummaryModel) domain.Summary {
	return domain.Summary{
		ID: m.ID, Content: m.Content, Approved: m.Approved,
		DocumentID: m.DocumentID, UnitID: m.UnitID, UserID: m.UserID, CreatedAt: m.CreatedAt,
	}
}

func assignmentToModel(a domain.Assignment) AssignmentModel {
	return AssignmentModel{
		ID: a.ID, Title: a.Title, Description: a.Description, Type: string(a.Type),
		Questions: a.Questions, Deadline: a.Deadline, UnitID: a.UnitID,
		UserID: a.UserID, Completed: a.Completed, CreatedAt: a.CreatedAt,
	}
}

func assignmentFromModel(m AssignmentModel) domain.Assignment {
	return domain.Assignment{
		ID: m.ID, Title: m.Title, Description: m.Description, Type: domain.AssignmentType(m.Type),
		Questions: m.Questions, Deadline: m.Deadline, UnitID: m.UnitID,
		UserID: m.UserID, Completed: m.Completed, CreatedAt: m.CreatedAt,
	}
}

func planEntryToModel(e domain.StudyPlanEntry) StudyPlanEntryModel {
	return StudyPlanEntryModel{
		ID: e.ID, Title: e.Title, Description: e.Description, ScheduledDate: e.ScheduledDate,
		StartTime: e.StartTime, EndTime: e.EndTime, EstimatedMinutes: e.EstimatedMinutes,
		UnitID: e.UnitID, DocumentID: e.DocumentID, UserID: e.UserID,
		Completed: e.Completed, CreatedAt: e.CreatedAt,
	}
}

func planEntryFromModel(m StudyPlanEntryModel) domain.StudyPlanEntry {
	return domain.StudyPlanEntry{
		ID: m.ID, Title: m.Title, Description: m.Description, ScheduledDate: m.ScheduledDate,
		StartTime: m.StartTime, EndTime: m.EndTime, EstimatedMinutes: m.EstimatedMinutes,
		UnitID: m.UnitID, DocumentID: m.DocumentID, UserID: m.UserID,
		Completed: m.Completed, CreatedAt: m.CreatedAt,
	}
}

func sessionToModel(s domain.StudySession) StudySessionModel {
	return StudySessionModel{
		ID: s.ID, Date: s.Date, MinutesStudied: s.MinutesStudied,
		TopicsCompleted: s.TopicsCompleted, UserID: s.UserID, CreatedAt: s.CreatedAt,
	}
}

func sessionFromModel(m StudySessionModel) domain.StudySession {
	return domain.StudySession{
		ID: m.ID, Date: m.Date, MinutesStudied: m.MinutesStudied,
		TopicsCompleted: m.TopicsCompleted, UserID: m.UserID, CreatedAt: m.CreatedAt,
	}
}

func messageToModel(msg domain.ChatMessage) ChatMessageModel {
	return ChatMessageModel{
		ID: msg.ID, Content: msg.Content, Role: string(msg.Role),
		UserID: msg.UserID, CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m ChatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID: m.ID, Content: m.Content, Role: domain.MessageRole(m.Role),
		UserID: m.UserID, CreatedAt: m.CreatedAt,
	}
}
