package usecases

import (
	"time"

	"cobrazap/internal/entities"
)

// daysBetween counts calendar days from a to b (both date-truncated).
// Rounding absorbs DST-shortened days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours()/24 + 0.5)
}

// dateOf truncates a timestamp to its calendar date in the given location.
func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SelectTargets partitions candidate installments into the three notification
// kinds for the calendar date of now, honoring the tenant's settings flags.
// Kinds are mutually exclusive: an installment due today is due_today, never
// early. The early window is [today+1, today+EarlyDays] inclusive.
//
// Payment status and phone presence are already encoded in the candidate
// rows; only date-window and flag filtering happens here.
func SelectTargets(now time.Time, cfg entities.AutomationSettings, rows []entities.DueInstallment) []entities.NotificationTarget {
	loc := now.Location()
	today := dateOf(now, loc)
	earlyCutoff := today.AddDate(0, 0, cfg.EarlyDays)

	var targets []entities.NotificationTarget
	for _, row := range rows {
		due := dateOf(row.DueDate, loc)

		switch {
		case due.Equal(today):
			if cfg.SendDueToday {
				targets = append(targets, entities.NotificationTarget{
					DueInstallment: row,
					Kind:           entities.KindDueToday,
				})
			}
		case due.Before(today):
			if cfg.SendOverdue {
				targets = append(targets, entities.NotificationTarget{
					DueInstallment: row,
					Kind:           entities.KindOverdue,
					DaysOverdue:    daysBetween(due, today),
				})
			}
		default: // due after today
			if cfg.SendEarly && !due.After(earlyCutoff) {
				targets = append(targets, entities.NotificationTarget{
					DueInstallment: row,
					Kind:           entities.KindEarly,
				})
			}
		}
	}
	return targets
}
