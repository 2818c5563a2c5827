// Package engine holds the pure scheduling decisions: which reminders are
// due and what the next occurrence of a recurring task looks like. Nothing
// here touches storage or the wall clock.
package engine

import (
	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/model"
)

// GenerateSuccessor builds the next occurrence of a completed recurring
// task. It returns false when the task does not recur or the rule has run
// past its end date. The successor has no ID; the store assigns one.
//
// The occurrence is anchored on the planned due date when there is one and
// on clk.Now() otherwise.
func GenerateSuccessor(completed model.Task, clk clock.Clock) (*model.Task, bool) {
	if completed.Recurrence == nil {
		return nil, false
	}

	anchor := clk.Now()
	if completed.DueAt != nil {
		anchor = *completed.DueAt
	}

	next, ok := completed.Recurrence.Next(anchor)
	if !ok {
		return nil, false
	}

	rule := *completed.Recurrence
	if rule.EndDate != nil {
		end := *rule.EndDate
		rule.EndDate = &end
	}
	parentID := completed.ID
	successor := &model.Task{
		OwnerID:      completed.OwnerID,
		Title:        completed.Title,
		Description:  completed.Description,
		Priority:     completed.Priority,
		Completed:    false,
		DueAt:        &next,
		Recurrence:   &rule,
		ParentTaskID: &parentID,
	}
	if completed.ReminderOffsetMinutes != nil {
		offset := *completed.ReminderOffsetMinutes
		successor.ReminderOffsetMinutes = &offset
	}
	if len(completed.Tags) > 0 {
		successor.Tags = make([]model.Tag, len(completed.Tags))
		copy(successor.Tags, completed.Tags)
	}
	return successor, true
}
