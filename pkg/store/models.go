package store

import "time"

// GORM models used for persistence. Primary keys come from the shared
// record_ids sequence, never from per-table autoincrement.
type UserModel struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Pace      int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type UnitModel struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	Color       string    `gorm:"not null"`
	UserID      int64     `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type DocumentModel struct {
	ID            int64  `gorm:"primaryKey"`
	Filename      string `gorm:"not null"`
	OriginalName  string `gorm:"not null"`
	MimeType      string `gorm:"not null"`
	Size          int64  `gorm:"not null"`
	ExtractedText string `gorm:"type:text"`
	StorageKey    string
	UnitID        int64     `gorm:"not null;index"`
	UserID        int64     `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

type NoteModel struct {
	ID         int64  `gorm:"primaryKey"`
	Content    string `gorm:"type:text;not null"`
	DocumentID *int64
	UnitID     int64     `gorm:"not null;index"`
	UserID     int64     `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type SummaryModel struct {
	ID         int64  `gorm:"primaryKey"`
	Content    string `gorm:"type:text;not null"`
	Approved   bool   `gorm:"not null"`
	DocumentID *int64
	UnitID     *int64
	UserID     int64     `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

type AssignmentModel struct {
	ID          int64  `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	Type        string    `gorm:"not null"`
	Questions   string    `gorm:"type:text"`
	Deadline    time.Time `gorm:"not null;index"`
	UnitID      *int64
	UserID      int64     `gorm:"not null;index"`
	Completed   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type StudyPlanEntryModel struct {
	ID               int64  `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	Description      string
	ScheduledDate    time.Time `gorm:"not null;index"`
	StartTime        string    `gorm:"not null"`
	EndTime          string    `gorm:"not null"`
	EstimatedMinutes int       `gorm:"not null"`
	UnitID           *int64
	DocumentID       *int64
	UserID           int64     `gorm:"not null;index"`
	Completed        bool      `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

type StudySessionModel struct {
	ID              int64     `gorm:"primaryKey"`
	Date            string    `gorm:"not null;index:idx_session_user_date,unique,priority:2"`
	MinutesStudied  int       `gorm:"not null"`
	TopicsCompleted int       `gorm:"not null"`
	UserID          int64     `gorm:"not null;index:idx_session_user_date,unique,priority:1"`
	CreatedAt       time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        int64     `gorm:"primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	Role      string    `gorm:"not null"`
	UserID    int64     `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}
