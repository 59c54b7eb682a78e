package homework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
)

func TestTranslate(t *testing.T) {
	for _, status := range KnownStatuses() {
		verdict, ok := status.Verdict()
		require.True(t, ok)

		text, err := Translate(New("hw01", status))
		require.NoError(t, err)
		assert.Equal(t, `Changed review status of "hw01". `+verdict, text)
	}
}

func TestTranslate_Approved(t *testing.T) {
	text, err := Translate(New("A", StatusApproved))

	require.NoError(t, err)
	assert.Equal(t, `Changed review status of "A". The work has been reviewed: the reviewer liked everything. Hooray!`, text)
}

func TestTranslate_Failures(t *testing.T) {
	tests := []struct {
		name string
		hw   Homework
		want string
	}{
		{"missing name", Homework{Status: StatusApproved, HasStatus: true}, `no "homework_name" key`},
		{"missing status", Homework{Name: "B", HasName: true}, `no "status" key`},
		{"unknown status", New("B", "unknown"), `unknown status "unknown", want one of approved, rejected, reviewing`},
		{"empty status", New("B", ""), `unknown status ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Translate(tt.hw)

			require.Error(t, err)
			assert.Empty(t, text)
			assert.True(t, shared.IsSchema(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTranslate_EmptyNameIsPresent(t *testing.T) {
	text, err := Translate(New("", StatusApproved))

	require.NoError(t, err)
	assert.Equal(t, `Changed review status of "". The work has been reviewed: the reviewer liked everything. Hooray!`, text)
}

func TestKnownStatuses(t *testing.T) {
	assert.Equal(t, []Status{StatusApproved, StatusRejected, StatusReviewing}, KnownStatuses())
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	hw := New("hw01", StatusReviewing)

	assert.True(t, tr.Changed(hw))
	tr.Record(hw)
	assert.False(t, tr.Changed(hw))

	hw.Status = StatusApproved
	assert.True(t, tr.Changed(hw))
	assert.Equal(t, 1, tr.Len())
}
