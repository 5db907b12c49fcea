package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobrazap/internal/entities"
)

func installmentDue(id string, due time.Time) entities.DueInstallment {
	return entities.DueInstallment{
		InstallmentID: id,
		TenantID:      "t1",
		LoanID:        "l1",
		ClientID:      "c1",
		DueDate:       due,
		Amount:        100,
		ClientName:    "Ana",
		Phone:         "11999998888",
	}
}

func allOnSettings(earlyDays int) entities.AutomationSettings {
	return entities.AutomationSettings{
		TenantID:     "t1",
		Enabled:      true,
		EarlyDays:    earlyDays,
		SendDueToday: true,
		SendOverdue:  true,
		SendEarly:    true,
	}
}

func TestSelectTargetsEarlyWindowBoundaries(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 30, 0, 0, time.Local)

	rows := []entities.DueInstallment{
		installmentDue("d0", now),                    // today -> due_today, not early
		installmentDue("d1", now.AddDate(0, 0, 1)),   // in window
		installmentDue("d3", now.AddDate(0, 0, 3)),   // window edge, included
		installmentDue("d4", now.AddDate(0, 0, 4)),   // past window, excluded
		installmentDue("over", now.AddDate(0, 0, -2)), // overdue
	}

	targets := SelectTargets(now, allOnSettings(3), rows)

	byID := make(map[string]entities.NotificationTarget)
	for _, target := range targets {
		byID[target.InstallmentID] = target
	}

	require.Len(t, targets, 4)
	assert.Equal(t, entities.KindDueToday, byID["d0"].Kind)
	assert.Equal(t, entities.KindEarly, byID["d1"].Kind)
	assert.Equal(t, entities.KindEarly, byID["d3"].Kind)
	assert.NotContains(t, byID, "d4")
	assert.Equal(t, entities.KindOverdue, byID["over"].Kind)
	assert.Equal(t, 2, byID["over"].DaysOverdue)
}

func TestSelectTargetsHonorsFlags(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.Local)
	rows := []entities.DueInstallment{
		installmentDue("today", now),
		installmentDue("early", now.AddDate(0, 0, 2)),
		installmentDue("late", now.AddDate(0, 0, -5)),
	}

	cfg := allOnSettings(3)
	cfg.SendDueToday = false
	cfg.SendEarly = false

	targets := SelectTargets(now, cfg, rows)
	require.Len(t, targets, 1)
	assert.Equal(t, "late", targets[0].InstallmentID)
	assert.Equal(t, entities.KindOverdue, targets[0].Kind)
	assert.Equal(t, 5, targets[0].DaysOverdue)
}

func TestSelectTargetsDueTodayIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2026, 8, 28, 23, 50, 0, 0, time.Local)
	due := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)

	targets := SelectTargets(now, allOnSettings(0), []entities.DueInstallment{
		installmentDue("x", due),
	})

	require.Len(t, targets, 1)
	assert.Equal(t, entities.KindDueToday, targets[0].Kind)
	assert.Equal(t, 0, targets[0].DaysOverdue)
}

func TestSelectTargetsZeroEarlyDays(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.Local)

	targets := SelectTargets(now, allOnSettings(0), []entities.DueInstallment{
		installmentDue("tomorrow", now.AddDate(0, 0, 1)),
	})
	assert.Empty(t, targets)
}
