package domain

import "time"

type AssignmentType string

const (
	TypeAssignment AssignmentType = "assignment"
	TypeCAT        AssignmentType = "cat"
	TypeExam       AssignmentType = "exam"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Urgency is derived from days remaining until an assignment deadline.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Pace      int       `json:"pace"`
	CreatedAt time.Time `json:"createdAt"`
}

// Unit is a user-defined study subject grouping documents, notes, and
// plan entries.
type Unit struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Document struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	OriginalName  string    `json:"originalName"`
	MimeType      string    `json:"mimeType"`
	Size          int64     `json:"size"`
	ExtractedText string    `json:"extractedText,omitempty"`
	StorageKey    string    `json:"-"`
	UnitID        int64     `json:"unitId"`
	UserID        int64     `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Note struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	DocumentID *int64    `json:"documentId,omitempty"`
	UnitID     int64     `json:"unitId"`
	UserID     int64     `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summary is assistant-generated text gated behind explicit approval.
// Unapproved summaries are inert: nothing else reads or acts on them.
type Summary struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Approved   bool      `json:"approved"`
	DocumentID *int64    `json:"documentId,omitempty"`
	UnitID     *int64    `json:"unitId,omitempty"`
	UserID     int64     `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Assignment struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Type        AssignmentType `json:"type"`
	Questions   string         `json:"questions,omitempty"`
	Deadline    time.Time      `json:"deadline"`
	UnitID      *int64         `json:"unitId,omitempty"`
	UserID      int64          `json:"userId"`
	Completed   bool           `json:"completed"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type StudyPlanEntry struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	ScheduledDate    time.Time `json:"scheduledDate"`
	StartTime        string    `json:"startTime"` // "14:30"
	EndTime          string    `json:"endTime"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	UnitID           *int64    `json:"unitId,omitempty"`
	DocumentID       *int64    `json:"documentId,omitempty"`
	UserID           int64     `json:"userId"`
	Completed        bool      `json:"completed"`
	CreatedAt        time.Time `json:"createdAt"`
}

// StudySession aggregates one calendar day of studying. At most one
// record exists per (user, date); repeat writes accumulate.
type StudySession struct {
	ID              int64     `json:"id"`
	Date            string    `json:"date"` // "2006-01-02"
	MinutesStudied  int       `json:"minutesStudied"`
	TopicsCompleted int       `json:"topicsCompleted"`
	UserID          int64     `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	Role      MessageRole `json:"role"`
	UserID    int64       `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
}
