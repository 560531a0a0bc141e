package store

import (
	"sort"
	"sync"
	"time"

	"studycompanion/pkg/domain"
)

// MemoryStore keeps all records in-process. It is the reference
// implementation of Store: a single id counter shared across every
// record kind, guarded by the store mutex.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]domain.User
	units       map[int64]domain.Unit
	documents   map[int64]domain.Document
	notes       map[int64]domain.Note
	summaries   map[int64]domain.Summary
	assignments map[int64]domain.Assignment
	planEntries map[int64]domain.StudyPlanEntry
	sessions    map[int64]domain.StudySession
	messages    map[int64]domain.ChatMessage
	nextID      int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]domain.User),
		units:       make(map[int64]domain.Unit),
		documents:   make(map[int64]domain.Document),
		notes:       make(map[int64]domain.Note),
		summaries:   make(map[int64]domain.Summary),
		assignments: make(map[int64]domain.Assignment),
		planEntries: make(map[int64]domain.StudyPlanEntry),
		sessions:    make(map[int64]domain.StudySession),
		messages:    make(map[int64]domain.ChatMessage),
		nextID:      1,
	}
}

// allocID must be called with the write lock held.
func (m *MemoryStore) allocID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// GetUser returns a user by id.
func (m *MemoryStore) GetUser(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// CreateUser registers a user, assigning its id and creation time.
func (m *MemoryStore) CreateUser(user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.allocID()
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

// UpdateUserPace sets a user's pace dial.
func (m *MemoryStore) UpdateUserPace(id int64, pace int) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	u.Pace = pace
	m.users[id] = u
	return u, nil
}

// ListUnits returns a user's units in creation order.
func (m *MemoryStore) ListUnits(userID int64) ([]domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Unit, 0, len(m.units))
	for _, u := range m.units {
		if u.UserID == userID {
			res = append(res, u)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetUnit retrieves a unit by id.
func (m *MemoryStore) GetUnit(id int64) (domain.Unit, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	return u, ok, nil
}

// CreateUnit stores a new unit.
func (m *MemoryStore) CreateUnit(unit domain.Unit) (domain.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit.ID = m.allocID()
	unit.CreatedAt = time.Now().UTC()
	m.units[unit.ID] = unit
	return unit, nil
}

// DeleteUnit removes a unit. Owned records are cascaded by the app.
func (m *MemoryStore) DeleteUnit(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[id]; !ok {
		return ErrNotFound
	}
	delete(m.units, id)
	return nil
}

// ListDocuments returns a unit's documents in creation order.
func (m *MemoryStore) ListDocuments(unitID int64) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Document, 0)
	for _, d := range m.documents {
		if d.UnitID == unitID {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetDocument retrieves a document by id.
func (m *MemoryStore) GetDocument(id int64) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	return d, ok, nil
}

// CreateDocument stores a new document record.
func (m *MemoryStore) CreateDocument(doc domain.Document) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = m.allocID()
	doc.CreatedAt = time.Now().UTC()
	m.documents[doc.ID] = doc
	return doc, nil
}

// DeleteDocument removes a document record.
func (m *MemoryStore) DeleteDocument(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

// ListNotes returns a unit's notes in creation order.
func (m *MemoryStore) ListNotes(unitID int64) ([]domain.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Note, 0)
	for _, n := range m.notes {
		if n.UnitID == unitID {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetNote retrieves a note by id.
func (m *MemoryStore) GetNote(id int64) (domain.Note, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notes[id]
	return n, ok, nil
}

// CreateNote stores a new note.
func (m *MemoryStore) CreateNote(note domain.Note) (domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note.ID = m.allocID()
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	m.notes[note.ID] = note
	return note, nil
}

// UpdateNote replaces a note's content and refreshes its update time.
func (m *MemoryStore) UpdateNote(id int64, content string) (domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return domain.Note{}, ErrNotFound
	}
	n.Content = content
	n.UpdatedAt = time.Now().UTC()
	m.notes[id] = n
	return n, nil
}

// DeleteNote removes a note.
func (m *MemoryStore) DeleteNote(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

// ListSummaries returns a user's summaries in creation order.
func (m *MemoryStore) ListSummaries(userID int64) ([]domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Summary, 0)
	for _, s := range m.summaries {
		if s.UserID == userID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetSummary retrieves a summary by id.
func (m *MemoryStore) GetSummary(id int64) (domain.Summary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[id]
	return s, ok, nil
}

// CreateSummary stores a new summary. Approved always starts false.
func (m *MemoryStore) CreateSummary(summary domain.Summary) (domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary.ID = m.allocID()
	summary.Approved = false
	summary.CreatedAt = time.Now().UTC()
	m.summaries[summary.ID] = summary
	return summary, nil
}

// ApproveSummary flips the approval gate.
func (m *MemoryStore) ApproveSummary(id int64) (domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[id]
	if !ok {
		return domain.Summary{}, ErrNotFound
	}
	s.Approved = true
	m.summaries[id] = s
	return s, nil
}

// DeleteSummary removes a summary.
func (m *MemoryStore) DeleteSummary(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.summaries[id]; !ok {
		return ErrNotFound
	}
	delete(m.summaries, id)
	return nil
}

// ListAssignments returns a user's assignments in creation order.
func (m *MemoryStore) ListAssignments(userID int64) ([]domain.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Assignment, 0)
	for _, a := range m.assignments {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetAssignment retrieves an assignment by id.
func (m *MemoryStore) GetAssignment(id int64) (domain.Assignment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	return a, ok, nil
}

// CreateAssignment stores a new assignment.
func (m *MemoryStore) CreateAssignment(assignment domain.Assignment) (domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment.ID = m.allocID()
	assignment.CreatedAt = time.Now().UTC()
	m.assignments[assignment.ID] = assignment
	return assignment, nil
}

// UpdateAssignment applies a partial update.
func (m *MemoryStore) UpdateAssignment(id int64, update AssignmentUpdate) (domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return domain.Assignment{}, ErrNotFound
	}
	if update.Title != nil {
		a.Title = *update.Title
	}
	if update.Description != nil {
		a.Description = *update.Description
	}
	if update.Type != nil {
		a.Type = *update.Type
	}
	if update.Questions != nil {
		a.Questions = *update.Questions
	}
	if update.Deadline != nil {
		a.Deadline = *update.Deadline
	}
	if update.UnitID != nil {
		unitID := *update.UnitID
		a.UnitID = &unitID
	}
	if update.Completed != nil {
		a.Completed = *update.Completed
	}
	m.assignments[id] = a
	return a, nil
}

// DeleteAssignment removes an assignment.
func (m *MemoryStore) DeleteAssignment(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}

// ListPlanEntries returns all plan entries for a user in creation order.
func (m *MemoryStore) ListPlanEntries(userID int64) ([]domain.StudyPlanEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.StudyPlanEntry, 0)
	for _, e := range m.planEntries {
		if e.UserID == userID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// GetPlanEntry retrieves a plan entry by id.
func (m *MemoryStore) GetPlanEntry(id int64) (domain.StudyPlanEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.planEntries[id]
	return e, ok, nil
}

// CreatePlanEntry stores a new plan entry.
func (m *MemoryStore) CreatePlanEntry(entry domain.StudyPlanEntry) (domain.StudyPlanEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.allocID()
	entry.CreatedAt = time.Now().UTC()
	m.planEntries[entry.ID] = entry
	return entry, nil
}

// CompletePlanEntry marks a plan entry as done.
func (m *MemoryStore) CompletePlanEntry(id int64) (domain.StudyPlanEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.planEntries[id]
	if !ok {
		return domain.StudyPlanEntry{}, ErrNotFound
	}
	e.Completed = true
	m.planEntries[id] = e
	return e, nil
}

// DeletePlanEntry removes a plan entry.
func (m *MemoryStore) DeletePlanEntry(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.planEntries[id]; !ok {
		return ErrNotFound
	}
	delete(m.planEntries, id)
	return nil
}

// ListSessions returns sessions newest-date first, capped at limit.
func (m *MemoryStore) ListSessions(userID int64, limit int) ([]domain.StudySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.StudySession, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date > res[j].Date })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// GetSessionByDate finds a user's session for one calendar day.
func (m *MemoryStore) GetSessionByDate(userID int64, date string) (domain.StudySession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.Date == date {
			return s, true, nil
		}
	}
	return domain.StudySession{}, false, nil
}

// CreateSession stores a new daily session record.
func (m *MemoryStore) CreateSession(session domain.StudySession) (domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = m.allocID()
	session.CreatedAt = time.Now().UTC()
	m.sessions[session.ID] = session
	return session, nil
}

// UpdateSession sets the accumulated totals for a session.
func (m *MemoryStore) UpdateSession(id int64, minutesStudied, topicsCompleted int) (domain.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.StudySession{}, ErrNotFound
	}
	s.MinutesStudied = minutesStudied
	s.TopicsCompleted = topicsCompleted
	m.sessions[id] = s
	return s, nil
}

// ListChatMessages returns the most recent messages in creation order.
func (m *MemoryStore) ListChatMessages(userID int64, limit int) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.UserID == userID {
			res = append(res, msg)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if limit > 0 && len(res) > limit {
		res = res[len(res)-limit:]
	}
	return res, nil
}

// CreateChatMessage appends a message to the log.
func (m *MemoryStore) CreateChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.allocID()
	msg.CreatedAt = time.Now().UTC()
	m.messages[msg.ID] = msg
	return msg, nil
}
