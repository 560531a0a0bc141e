package store

import (
	"errors"
	"time"

	"studycompanion/pkg/domain"
)

// ErrNotFound is returned by targeted updates and deletes when the
// record does not exist. Lookups report absence via their bool result.
var ErrNotFound = errors.New("record not found")

// AssignmentUpdate carries a partial assignment update. Nil fields are
// left unchanged.
type AssignmentUpdate struct {
	Title       *string
	Description *string
	Type        *domain.AssignmentType
	Questions   *string
	Deadline    *time.Time
	UnitID      *int64
	Completed   *bool
}

// Store defines persistence operations for all record kinds. Creates
// assign the identifier (one shared counter across kinds) and the
// creation timestamp.
type Store interface {
	// users
	GetUser(id int64) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	CreateUser(user domain.User) (domain.User, error)
	UpdateUserPace(id int64, pace int) (domain.User, error)

	// units
	ListUnits(userID int64) ([]domain.Unit, error)
	GetUnit(id int64) (domain.Unit, bool, error)
	CreateUnit(unit domain.Unit) (domain.Unit, error)
	DeleteUnit(id int64) error

	// documents
	ListDocuments(unitID int64) ([]domain.Document, error)
	GetDocument(id int64) (domain.Document, bool, error)
	CreateDocument(doc domain.Document) (domain.Document, error)
	DeleteDocument(id int64) error

	// notes
	ListNotes(unitID int64) ([]domain.Note, error)
	GetNote(id int64) (domain.Note, bool, error)
	CreateNote(note domain.Note) (domain.Note, error)
	UpdateNote(id int64, content string) (domain.Note, error)
	DeleteNote(id int64) error

	// summaries
	ListSummaries(userID int64) ([]domain.Summary, error)
	GetSummary(id int64) (domain.Summary, bool, error)
	CreateSummary(summary domain.Summary) (domain.Summary, error)
	ApproveSummary(id int64) (domain.Summary, error)
	DeleteSummary(id int64) error

	// assignments
	ListAssignments(userID int64) ([]domain.Assignment, error)
	GetAssignment(id int64) (domain.Assignment, bool, error)
	CreateAssignment(assignment domain.Assignment) (domain.Assignment, error)
	UpdateAssignment(id int64, update AssignmentUpdate) (domain.Assignment, error)
	DeleteAssignment(id int64) error

	// study plan
	ListPlanEntries(userID int64) ([]domain.StudyPlanEntry, error)
	GetPlanEntry(id int64) (domain.StudyPlanEntry, bool, error)
	CreatePlanEntry(entry domain.StudyPlanEntry) (domain.StudyPlanEntry, error)
	CompletePlanEntry(id int64) (domain.StudyPlanEntry, error)
	DeletePlanEntry(id int64) error

	// study sessions
	ListSessions(userID int64, limit int) ([]domain.StudySession, error)
	GetSessionByDate(userID int64, date string) (domain.StudySession, bool, error)
	CreateSession(session domain.StudySession) (domain.StudySession, error)
	UpdateSession(id int64, minutesStudied, topicsCompleted int) (domain.StudySession, error)

	// chat
	ListChatMessages(userID int64, limit int) ([]domain.ChatMessage, error)
	CreateChatMessage(msg domain.ChatMessage) (domain.ChatMessage, error)
}
