package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-scheduler/internal/recurrence"
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MaxReminderOffsetMinutes is the largest offset whose duration still fits
// in a time.Duration.
const MaxReminderOffsetMinutes int64 = math.MaxInt64 / int64(time.Minute)

// ParsePriority maps user input to a Priority. Empty input means none.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PriorityNone, nil
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", WrapError(ErrCodeInvalid, ErrInvalidInput.Message, fmt.Errorf("unknown priority %q", raw))
	}
}

// Task is one todo item. A recurring task spawns a successor through
// ParentTaskID when it is completed.
type Task struct {
	ID                    string `gorm:"primaryKey;size:36"`
	OwnerID               string `gorm:"index:idx_owner_completed;size:64;not null"`
	Title                 string `gorm:"size:200;not null"`
	Description           string
	Completed             bool     `gorm:"index:idx_owner_completed"`
	Priority              Priority `gorm:"size:20"`
	DueAt                 *time.Time
	ReminderOffsetMinutes *int
	Recurrence            *recurrence.Rule `gorm:"-"`
	ParentTaskID          *string          `gorm:"uniqueIndex;size:36"`
	Tags                  []Tag            `gorm:"many2many:task_tags;"`
	CompletedAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Storage columns for Recurrence, kept in sync by the hooks below.
	RecurrencePattern  string     `gorm:"size:20" json:"-"`
	RecurrenceInterval int        `json:"-"`
	RecurrenceEndDate  *time.Time `json:"-"`
}

// IsRecurring reports whether completing the task produces a successor.
func (t *Task) IsRecurring() bool {
	return t != nil && t.Recurrence != nil
}

// HasReminder reports whether the task asks for a reminder before its due date.
func (t *Task) HasReminder() bool {
	return t != nil && t.DueAt != nil && t.ReminderOffsetMinutes != nil
}

// TagIDs lists the identifiers of the attached tags.
func (t *Task) TagIDs() []string {
	ids := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = PriorityNone
	}
	t.DueAt = utcPtr(t.DueAt)
	t.CompletedAt = utcPtr(t.CompletedAt)

	t.RecurrencePattern, t.RecurrenceInterval, t.RecurrenceEndDate = "", 0, nil
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
		t.RecurrencePattern = string(t.Recurrence.Pattern)
		t.RecurrenceInterval = t.Recurrence.IntervalDays
		t.RecurrenceEndDate = utcPtr(t.Recurrence.EndDate)
	}
	return nil
}

func (t *Task) AfterFind(tx *gorm.DB) error {
	t.Recurrence = nil
	if t.RecurrencePattern == "" {
		return nil
	}
	rule, err := recurrence.New(recurrence.Pattern(t.RecurrencePattern), t.RecurrenceInterval, t.RecurrenceEndDate)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Recurrence = rule
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
