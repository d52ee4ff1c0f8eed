package services

import (
	"context"
	"testing"

	"flux-parties/internal/status"
	"flux-parties/models"
	"flux-parties/repo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminFixture(t *testing.T) (*AdminService, *RegistrationService, *LifecycleService, *repo.Repo) {
	t.Helper()

	r := newTestRepo(t)
	guests := NewGuestService(r)
	reg := NewRegistrationService(r)
	lifecycle := NewLifecycleService(r, guests, nil)
	admin := NewAdminService(r, guests, nil)
	return admin, reg, lifecycle, r
}

func TestUpdateWave(t *testing.T) {
	admin, _, _, r := newAdminFixture(t)
	ctx := context.Background()

	waves, err := admin.ListWaves(ctx)
	require.NoError(t, err)
	require.Len(t, waves, 4)

	wave := waves[1]
	wave.Price = decimal.NewFromInt(1800)
	wave.MaxTickets = 120
	require.NoError(t, admin.UpdateWave(ctx, wave))

	updated, err := r.Waves.List()
	require.NoError(t, err)
	assert.Equal(t, "1800", updated[1].Price.String())
	assert.Equal(t, 120, updated[1].MaxTickets)

	wave.ID = "nope"
	assert.ErrorIs(t, admin.UpdateWave(ctx, wave), status.ErrNotFound)
}

func TestSetActiveWaveIsExclusive(t *testing.T) {
	admin, _, _, r := newAdminFixture(t)
	ctx := context.Background()

	require.NoError(t, admin.SetActiveWave(ctx, "wave-3"))

	waves, err := r.Waves.List()
	require.NoError(t, err)
	for _, w := range waves {
		assert.Equal(t, w.ID == "wave-3", w.Active, w.ID)
	}

	assert.ErrorIs(t, admin.SetActiveWave(ctx, "nope"), status.ErrNotFound)
}

func TestUpdateGuest(t *testing.T) {
	admin, reg, _, _ := newAdminFixture(t)
	guests := NewGuestService(admin.repo)
	ctx := context.Background()

	created, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)

	edited := created
	edited.Name = "Mona Lisa"
	edited.Instagram = "@monalisa"
	edited.Phone = "0111111111"
	edited.Method = models.PaymentTelda
	edited.AmountPaid = edited.AmountDue
	edited.Approved = true
	require.NoError(t, admin.UpdateGuest(ctx, edited))

	updated, found, err := guests.FindGuestByToken(created.QRToken)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Mona Lisa", updated.Name)
	assert.Equal(t, "@monalisa", updated.Instagram)
	assert.Equal(t, "0111111111", updated.Phone)
	assert.Equal(t, models.PaymentTelda, updated.Method)
	assert.True(t, updated.Approved)
	assert.Equal(t, updated.AmountDue.String(), updated.AmountPaid.String())

	// Tokens and wave linkage survive the edit untouched.
	assert.Equal(t, created.QRToken, updated.QRToken)
	assert.Equal(t, created.QREntryToken, updated.QREntryToken)
	assert.Equal(t, created.QRExitToken, updated.QRExitToken)
	assert.Equal(t, created.WaveID, updated.WaveID)
	assert.Equal(t, created.Number, updated.Number)
}

func TestUpdateGuestValidation(t *testing.T) {
	admin, reg, _, _ := newAdminFixture(t)
	ctx := context.Background()

	created, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)

	blank := created
	blank.Name = "   "
	assert.ErrorIs(t, admin.UpdateGuest(ctx, blank), status.ErrValidation)

	badMethod := created
	badMethod.Method = "Cash"
	assert.ErrorIs(t, admin.UpdateGuest(ctx, badMethod), status.ErrValidation)

	unknown := created
	unknown.TicketID = "nope"
	assert.ErrorIs(t, admin.UpdateGuest(ctx, unknown), status.ErrNotFound)
}

func TestUpdateGuestBrokenLink(t *testing.T) {
	admin, reg, _, r := newAdminFixture(t)
	ctx := context.Background()

	created, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)

	_, err = r.Status.Remove(func(st models.TicketStatus) bool { return st.TicketID == created.TicketID })
	require.NoError(t, err)

	assert.ErrorIs(t, admin.UpdateGuest(ctx, created), status.ErrBrokenLink)
}

func TestUpdateWaveGaugeKeyedByID(t *testing.T) {
	admin, _, _, _ := newAdminFixture(t)
	ctx := context.Background()

	waves, err := admin.ListWaves(ctx)
	require.NoError(t, err)

	// Renaming a wave must keep publishing under its id, not the new name.
	renamed := waves[1]
	renamed.Name = "Early Bird"
	renamed.SoldCount = 7
	require.NoError(t, admin.UpdateWave(ctx, renamed))

	assert.Equal(t, float64(7), waveSoldValue(t, renamed.ID))
	assert.False(t, waveSoldSeriesExists(t, "Early Bird"))
}

func waveSoldValue(t *testing.T, waveID string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "wave_sold_count" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "wave" && label.GetValue() == waveID {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no wave_sold_count series for wave %q", waveID)
	return 0
}

func waveSoldSeriesExists(t *testing.T, waveLabel string) bool {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "wave_sold_count" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "wave" && label.GetValue() == waveLabel {
					return true
				}
			}
		}
	}
	return false
}

func TestDeleteGuestRemovesAllRows(t *testing.T) {
	admin, reg, _, r := newAdminFixture(t)
	ctx := context.Background()

	first, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)
	second, err := reg.Register(ctx, testRequest("tarek"))
	require.NoError(t, err)

	require.NoError(t, admin.DeleteGuest(ctx, first.TicketID))

	tickets, err := r.Tickets.List()
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, second.TicketID, tickets[0].ID)

	users, err := r.Users.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)

	security, err := r.Security.List()
	require.NoError(t, err)
	assert.Len(t, security, 1)

	statuses, err := r.Status.List()
	require.NoError(t, err)
	assert.Len(t, statuses, 1)

	payments, err := r.Payments.List()
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	waves, err := r.Waves.List()
	require.NoError(t, err)
	assert.Equal(t, 1, waves[0].SoldCount)

	assert.ErrorIs(t, admin.DeleteGuest(ctx, first.TicketID), status.ErrNotFound)
}

func TestDeleteGuestNeverReissuesNumbers(t *testing.T) {
	admin, reg, _, _ := newAdminFixture(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)
	second, err := reg.Register(ctx, testRequest("tarek"))
	require.NoError(t, err)

	require.NoError(t, admin.DeleteGuest(ctx, second.TicketID))

	third, err := reg.Register(ctx, testRequest("nour"))
	require.NoError(t, err)
	assert.Equal(t, 3, third.Number)
}

func TestDeleteGuestFloorsSoldCount(t *testing.T) {
	admin, reg, _, r := newAdminFixture(t)
	ctx := context.Background()

	guest, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)

	// Force the drift the floor protects against.
	_, err = r.Waves.Update(
		func(w models.Wave) bool { return w.ID == guest.WaveID },
		func(w models.Wave) models.Wave { w.SoldCount = 0; return w },
	)
	require.NoError(t, err)

	require.NoError(t, admin.DeleteGuest(ctx, guest.TicketID))

	waves, err := r.Waves.List()
	require.NoError(t, err)
	assert.Equal(t, 0, waves[0].SoldCount)
}

func TestClearGuests(t *testing.T) {
	admin, reg, _, r := newAdminFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := reg.Register(ctx, testRequest("guest"))
		require.NoError(t, err)
	}

	require.NoError(t, admin.ClearGuests(ctx))

	tickets, err := r.Tickets.List()
	require.NoError(t, err)
	assert.Empty(t, tickets)

	waves, err := r.Waves.List()
	require.NoError(t, err)
	for _, w := range waves {
		assert.Equal(t, 0, w.SoldCount)
	}

	// Waves and admins survive the wipe.
	assert.Len(t, waves, 4)
	admins, err := r.Admins.List()
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}

func TestExpenses(t *testing.T) {
	admin, _, _, _ := newAdminFixture(t)
	ctx := context.Background()

	expense, err := admin.AddExpense(ctx, "DJ", decimal.NewFromInt(500), "deposit")
	require.NoError(t, err)
	assert.NotEmpty(t, expense.ID)
	assert.False(t, expense.CreatedAt.IsZero())

	_, err = admin.AddExpense(ctx, "  ", decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, status.ErrValidation)
	_, err = admin.AddExpense(ctx, "Venue", decimal.Zero, "")
	assert.ErrorIs(t, err, status.ErrValidation)
	_, err = admin.AddExpense(ctx, "Venue", decimal.NewFromInt(-5), "")
	assert.ErrorIs(t, err, status.ErrValidation)

	expenses, err := admin.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, expenses, 1)

	require.NoError(t, admin.DeleteExpense(ctx, expense.ID))
	assert.ErrorIs(t, admin.DeleteExpense(ctx, expense.ID), status.ErrNotFound)

	_, err = admin.AddExpense(ctx, "Venue", decimal.NewFromInt(2000), "")
	require.NoError(t, err)
	require.NoError(t, admin.ClearExpenses(ctx))

	expenses, err = admin.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

func TestSummarize(t *testing.T) {
	admin, reg, lifecycle, _ := newAdminFixture(t)
	ctx := context.Background()

	approved, err := reg.Register(ctx, testRequest("mona"))
	require.NoError(t, err)
	_, err = reg.Register(ctx, testRequest("tarek"))
	require.NoError(t, err)

	require.NoError(t, lifecycle.Approve(ctx, approved.TicketID))
	_, err = lifecycle.CheckIn(ctx, approved.QREntryToken)
	require.NoError(t, err)

	_, err = admin.AddExpense(ctx, "DJ", decimal.NewFromInt(500), "")
	require.NoError(t, err)

	sum, err := admin.Summarize(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.GuestCount)
	assert.Equal(t, 1, sum.ApprovedCount)
	assert.Equal(t, 1, sum.CheckedIn)
	assert.Equal(t, "2200", sum.TotalDue.String())
	assert.Equal(t, "1100", sum.TotalPaid.String())
	// Only the approved guest contributes to the split.
	assert.Equal(t, "433.33", sum.MisarahProfit.String())
	assert.Equal(t, "333.33", sum.DomzProfit.String())
	assert.Equal(t, "333.33", sum.SateaProfit.String())
	assert.Equal(t, "500", sum.TotalExpenses.String())
}
