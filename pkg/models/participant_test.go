package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwcma/capitalab/pkg/models"
)

func TestParticipantSetAssignSingularSlots(t *testing.T) {
	t.Parallel()

	roster := models.ParticipantSet{}

	ok := roster.Assign(models.RoleRegulator, &models.Participant{UserID: "reg-1", Name: "CMA Desk"})
	require.True(t, ok)
	require.NotNil(t, roster.Regulator)
	assert.Equal(t, "reg-1", roster.Regulator.UserID)

	// Singular slots are last-write-wins.
	roster.Assign(models.RoleRegulator, &models.Participant{UserID: "reg-2", Name: "CMA Desk B"})
	assert.Equal(t, "reg-2", roster.Regulator.UserID)
	assert.Len(t, roster.ByRole(models.RoleRegulator), 1)
}

func TestParticipantSetAssignMultiValuedSlots(t *testing.T) {
	t.Parallel()

	roster := models.ParticipantSet{}

	roster.Assign(models.RoleBroker, &models.Participant{UserID: "brk-1"})
	roster.Assign(models.RoleBroker, &models.Participant{UserID: "brk-2"})

	// Repeated assignment of the same user appends again; there is no dedup.
	roster.Assign(models.RoleBroker, &models.Participant{UserID: "brk-1"})

	assert.Len(t, roster.Brokers, 3)
	assert.True(t, roster.HasUser("brk-1", models.RoleBroker))
	assert.True(t, roster.HasUser("brk-2", models.RoleBroker))
}

func TestParticipantSetRejectsNonSlotRoles(t *testing.T) {
	t.Parallel()

	roster := models.ParticipantSet{}

	assert.False(t, roster.Assign(models.RoleAll, &models.Participant{UserID: "u-1"}))
	assert.False(t, roster.Assign(models.ParticipantRole("auditor"), &models.Participant{UserID: "u-1"}))
	assert.False(t, models.RoleAll.IsValidSlot())
}

func TestParticipantRoleMultiValued(t *testing.T) {
	t.Parallel()

	assert.True(t, models.RoleBroker.IsMultiValued())
	assert.True(t, models.RoleInvestor.IsMultiValued())
	assert.False(t, models.RoleIssuer.IsMultiValued())
	assert.False(t, models.RoleRegulator.IsMultiValued())
}
