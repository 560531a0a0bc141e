// Package progress derives read-only views over stored records: unit
// progress, assignment urgency, daily plan completion, and the study
// streak. Nothing here mutates state; derivation cannot fail on valid
// inputs.
package progress

import (
	"math"
	"sort"
	"time"

	"studycompanion/pkg/domain"
)

const (
	minTopicsPerUnit = 5
	topicsPerDoc     = 2
	streakWindowDays = 30
	dateLayout       = "2006-01-02"
)

// UnitView is a unit annotated with derived progress fields.
type UnitView struct {
	domain.Unit
	DocumentsCount     int    `json:"documentsCount"`
	NotesCount         int    `json:"notesCount"`
	TotalTopics        int    `json:"totalTopics"`
	CompletedTopics    int    `json:"completedTopics"`
	ProgressPercentage int    `json:"progressPercentage"`
	LastStudied        string `json:"lastStudied"`
}

// AssignmentView is an assignment annotated with deadline-derived fields.
type AssignmentView struct {
	domain.Assignment
	DaysUntilDue int            `json:"daysUntilDue"`
	Urgency      domain.Urgency `json:"urgency"`
}

// DailyPlanView partitions one calendar day's plan entries.
type DailyPlanView struct {
	Date           string                  `json:"date"`
	Upcoming       []domain.StudyPlanEntry `json:"upcoming"`
	Completed      []domain.StudyPlanEntry `json:"completed"`
	CompletedCount int                     `json:"completedCount"`
	TotalCount     int                     `json:"totalCount"`
	Percentage     int                     `json:"percentage"`
	TotalMinutes   int                     `json:"totalMinutes"`
}

// BuildUnitView computes the progress view for one unit. TotalTopics is
// floored at 5 so an empty unit still has a nonzero denominator, and
// CompletedTopics uses the note count as a completed-topic proxy,
// clamped into [0, TotalTopics].
func BuildUnitView(unit domain.Unit, documentsCount, notesCount int) UnitView {
	totalTopics := documentsCount * topicsPerDoc
	if totalTopics < minTopicsPerUnit {
		totalTopics = minTopicsPerUnit
	}
	completedTopics := notesCount
	if completedTopics > totalTopics {
		completedTopics = totalTopics
	}
	if completedTopics < 0 {
		completedTopics = 0
	}
	lastStudied := "Not started"
	if documentsCount > 0 {
		lastStudied = "2 days ago"
	}
	return UnitView{
		Unit:               unit,
		DocumentsCount:     documentsCount,
		NotesCount:         notesCount,
		TotalTopics:        totalTopics,
		CompletedTopics:    completedTopics,
		ProgressPercentage: percentage(completedTopics, totalTopics),
		LastStudied:        lastStudied,
	}
}

// DaysUntilDue counts whole days until the deadline, rounding up.
// Overdue deadlines yield a negative count.
func DaysUntilDue(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// UrgencyFor maps days remaining to an urgency label.
func UrgencyFor(daysUntilDue int) domain.Urgency {
	switch {
	case daysUntilDue <= 2:
		return domain.UrgencyHigh
	case daysUntilDue <= 7:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// AnnotateAssignments derives urgency fields for every assignment and
// sorts ascending by deadline. The sort is stable, so assignments with
// equal deadlines keep insertion order. Overdue items stay in the list.
func AnnotateAssignments(assignments []domain.Assignment, now time.Time) []AssignmentView {
	views := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		days := DaysUntilDue(a.Deadline, now)
		views = append(views, AssignmentView{
			Assignment:   a,
			DaysUntilDue: days,
			Urgency:      UrgencyFor(days),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Deadline.Before(views[j].Deadline)
	})
	return views
}

// UpcomingAssignments returns at most max incomplete assignments with a
// strictly future deadline, soonest first.
func UpcomingAssignments(assignments []domain.Assignment, now time.Time, max int) []AssignmentView {
	views := AnnotateAssignments(assignments, now)
	upcoming := make([]AssignmentView, 0, max)
	for _, v := range views {
		if v.Completed || !v.Deadline.After(now) {
			continue
		}
		upcoming = append(upcoming, v)
		if len(upcoming) == max {
			break
		}
	}
	return upcoming
}

// BuildDailyPlan filters entries to one calendar day and partitions
// them into upcoming and completed, each ordered by start time. The
// fixed "HH:MM" format makes lexicographic ordering chronological.
func BuildDailyPlan(entries []domain.StudyPlanEntry, date time.Time) DailyPlanView {
	day := date.UTC().Format(dateLayout)
	view := DailyPlanView{
		Date:      day,
		Upcoming:  []domain.StudyPlanEntry{},
		Completed: []domain.StudyPlanEntry{},
	}
	for _, e := range entries {
		if e.ScheduledDate.UTC().Format(dateLayout) != day {
			continue
		}
		view.TotalCount++
		view.TotalMinutes += e.EstimatedMinutes
		if e.Completed {
			view.Completed = append(view.Completed, e)
		} else {
			view.Upcoming = append(view.Upcoming, e)
		}
	}
	sortByStartTime(view.Upcoming)
	sortByStartTime(view.Completed)
	view.CompletedCount = len(view.Completed)
	view.Percentage = percentage(view.CompletedCount, view.TotalCount)
	return view
}

// NextSession returns the earliest not-completed entry of a daily plan,
// or nil when every entry is done.
func (v DailyPlanView) NextSession() *domain.StudyPlanEntry {
	if len(v.Upcoming) == 0 {
		return nil
	}
	next := v.Upcoming[0]
	return &next
}

// Streak counts consecutive qualifying days ending at today. A day
// qualifies when a session exists with TopicsCompleted > 0. The walk
// starts at today, so a missing session today yields 0 regardless of
// earlier days, and never looks back more than 30 days.
func Streak(sessions []domain.StudySession, today time.Time) int {
	qualifying := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if s.TopicsCompleted > 0 {
			qualifying[s.Date] = true
		}
	}
	streak := 0
	day := today.UTC()
	for i := 0; i < streakWindowDays; i++ {
		if !qualifying[day.Format(dateLayout)] {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func sortByStartTime(entries []domain.StudyPlanEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartTime < entries[j].StartTime
	})
}

func percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
