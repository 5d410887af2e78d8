// Package lifecycle holds the pure punctuality rules for submissions.
// Every call site (creation, submit/unsubmit, the unsubmitted sweep) goes
// through EffectiveDue and OnTime so the rules cannot drift apart.
package lifecycle

import (
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
)

// endOfDay is used when an assignment has a due date but no due time.
var endOfDay = models.ClockTime{Hour: 23, Minute: 59, Second: 59}

// EffectiveDue combines an optional due date and time into a deadline,
// evaluated in now's location:
//
//	date and time -> date at time
//	date only     -> date at 23:59:59
//	time only     -> today at time
//	neither       -> nil (no deadline)
func EffectiveDue(date *models.Date, clock *models.ClockTime, now time.Time) *time.Time {
	loc := now.Location()
	var due time.Time
	switch {
	case date != nil && clock != nil:
		due = clock.On(date.Time, loc)
	case date != nil:
		due = endOfDay.On(date.Time, loc)
	case clock != nil:
		due = clock.On(now, loc)
	default:
		return nil
	}
	return &due
}

// OnTime reports whether submittedAt strictly precedes due. It returns nil when there is no deadline.
func OnTime(submittedAt time.Time, due *time.Time) *bool {
	if due == nil {
		return nil
	}
	onTime := submittedAt.Before(*due)
	return &onTime
}

// OnTimeFor evaluates OnTime for an assignment's deadline at instant at.
func OnTimeFor(a *models.Assignment, at time.Time) *bool {
	return OnTime(at, EffectiveDue(a.DueDate, a.DueTime, at))
}
