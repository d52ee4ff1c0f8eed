package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentInstapay.Valid())
	assert.True(t, PaymentTelda.Valid())
	assert.False(t, PaymentMethod("Cash").Valid())
	assert.False(t, PaymentMethod("").Valid())
}

func TestWaveFull(t *testing.T) {
	w := Wave{MaxTickets: 2}
	assert.False(t, w.Full())

	w.SoldCount = 1
	assert.False(t, w.Full())

	w.SoldCount = 2
	assert.True(t, w.Full())

	w.SoldCount = 3
	assert.True(t, w.Full())
}

func TestDefaultWaves(t *testing.T) {
	waves := DefaultWaves()
	assert.Len(t, waves, 4)

	active := 0
	for _, w := range waves {
		if w.Active {
			active++
		}
		assert.True(t, w.Deduction.LessThan(w.Price), w.ID)
		assert.Positive(t, w.MaxTickets, w.ID)
		assert.Zero(t, w.SoldCount, w.ID)
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, "wave-1", waves[0].ID)
	assert.True(t, waves[0].Active)
}

func TestDefaultAdmins(t *testing.T) {
	admins := DefaultAdmins()
	assert.Len(t, admins, 2)
	assert.Equal(t, RoleAdmin, admins[0].Role)
	assert.Equal(t, RoleSecurity, admins[1].Role)
}
