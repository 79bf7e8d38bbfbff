package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLateralConfirmation(t *testing.T) {
	lateral := Student{ID: "s1", IsLateral: true}
	regular := Student{ID: "s2"}

	var gate LateralConfirmation
	assert.Equal(t, ConfirmationInit, gate.State())
	assert.True(t, gate.CanProceed())

	// regular students and other targets never wait for a confirmation
	gate.Select(regular, SecondYear, FirstYear)
	assert.Equal(t, ConfirmationInit, gate.State())
	gate.Select(lateral, SecondYear, ThirdYear)
	assert.Equal(t, ConfirmationInit, gate.State())
	gate.Confirm(true)
	assert.Equal(t, ConfirmationInit, gate.State())
	assert.False(t, gate.ClearsLateral())

	gate.Select(lateral, SecondYear, FirstYear)
	assert.Equal(t, AwaitingConfirmation, gate.State())
	assert.True(t, gate.Required())
	assert.False(t, gate.CanProceed())

	gate.Confirm(true)
	assert.Equal(t, Confirmed, gate.State())
	assert.True(t, gate.CanProceed())
	assert.True(t, gate.ClearsLateral())

	gate.Confirm(false)
	assert.Equal(t, AwaitingConfirmation, gate.State())
	assert.False(t, gate.CanProceed())

	// a new selection must be confirmed again
	gate.Confirm(true)
	gate.Select(lateral, SecondYear, FirstYear)
	assert.Equal(t, AwaitingConfirmation, gate.State())

	gate.Reset()
	assert.Equal(t, ConfirmationInit, gate.State())
	assert.Equal(t, "INIT", gate.State().String())
}
