package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

func TestSlotWorkflowDuplicateNamesHoldingSlot(t *testing.T) {
	w := NewSlotWorkflow(1, true, 5)
	require.NoError(t, w.SetSlotCount(3, false))

	require.NoError(t, w.PreviewCourse(0, "c-a"))
	require.NoError(t, w.ConfirmPreview(0))

	err := w.PreviewCourse(2, "c-a")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateCourse.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "slot 1")

	// The failed preview leaves the slot untouched.
	assert.Empty(t, w.Slots[2].Preview)

	// A previewed but unconfirmed course also blocks other slots.
	require.NoError(t, w.PreviewCourse(1, "c-b"))
	err = w.PreviewCourse(2, "c-b")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "slot 2")
}

func TestSlotWorkflowConfirmRequiresPreview(t *testing.T) {
	w := NewSlotWorkflow(1, true, 5)
	require.NoError(t, w.SetSlotCount(1, false))
	err := w.ConfirmPreview(0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	require.NoError(t, w.PreviewCourse(0, "c-a"))
	require.NoError(t, w.ConfirmPreview(0))
	assert.True(t, w.Complete())
	assert.Equal(t, []string{"c-a"}, w.ConfirmedCourseIDs())
}

func TestSlotWorkflowTruncationGuard(t *testing.T) {
	w := NewSlotWorkflow(1, true, 5)
	require.NoError(t, w.SetSlotCount(3, false))
	for i, id := range []string{"c-a", "c-b", "c-c"} {
		require.NoError(t, w.PreviewCourse(i, id))
		require.NoError(t, w.ConfirmPreview(i))
	}

	err := w.SetSlotCount(1, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTruncation.Code, appErrors.FromError(err).Code)
	assert.Len(t, w.Slots, 3)

	// Forcing the resize discards the excess selections.
	require.NoError(t, w.SetSlotCount(1, true))
	assert.Equal(t, []string{"c-a"}, w.ConfirmedCourseIDs())
}

func TestSlotWorkflowSetCountBounds(t *testing.T) {
	w := NewSlotWorkflow(1, true, 5)
	require.Error(t, w.SetSlotCount(0, false))
	require.Error(t, w.SetSlotCount(6, false))
	require.NoError(t, w.SetSlotCount(5, false))
	assert.Len(t, w.Slots, 5)
}

func TestEditWorkflowLastCourseGuard(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	w := NewEditWorkflow(1, true, 5, at, []string{"c-a"})

	err := w.RemoveSlot(0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastCourseGuard.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"c-a"}, w.ConfirmedCourseIDs())
}

func TestEditWorkflowRemoveWithSiblings(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	w := NewEditWorkflow(1, true, 5, at, []string{"c-a", "c-b"})

	require.NoError(t, w.RemoveSlot(0))
	assert.Equal(t, []string{"c-b"}, w.ConfirmedCourseIDs())

	// Now c-b is the last one left.
	err := w.RemoveSlot(1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastCourseGuard.Code, appErrors.FromError(err).Code)
}

func TestEditWorkflowInactiveTermRemovesFreely(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	w := NewEditWorkflow(1, false, 5, at, []string{"c-a"})
	require.NoError(t, w.RemoveSlot(0))
	assert.Empty(t, w.ConfirmedCourseIDs())
}

func TestNewWorkflowRemoveSkipsGuard(t *testing.T) {
	w := NewSlotWorkflow(1, true, 5)
	require.NoError(t, w.SetSlotCount(1, false))
	require.NoError(t, w.PreviewCourse(0, "c-a"))
	require.NoError(t, w.ConfirmPreview(0))
	require.NoError(t, w.RemoveSlot(0))
	assert.Empty(t, w.ConfirmedCourseIDs())
}
