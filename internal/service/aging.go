// internal/service/aging.go
package service

import (
	"math"
	"time"
)

const millisPerDay = 24 * 60 * 60 * 1000

// DaysOverdue returns whole days between now and the due date, positive
// when overdue: floor of the millisecond difference over one day. An
// invoice due today yields 0.
func DaysOverdue(dueDate, now time.Time) int {
	diff := now.Sub(dueDate).Milliseconds()
	return int(math.Floor(float64(diff) / float64(millisPerDay)))
}

// ReminderStage maps days overdue to a reminder tier. The 7/14/21 day
// thresholds are fixed, not per-owner.
func ReminderStage(daysOverdue int) int {
	if daysOverdue >= 21 {
		return 3
	}
	if daysOverdue >= 14 {
		return 2
	}
	if daysOverdue >= 7 {
		return 1
	}
	return 0
}
