package service

import (
	"fmt"
	"time"

	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

// SlotState is one course slot inside an in-progress selection. A course
// lands in a slot as a preview first and only counts once confirmed.
type SlotState struct {
	CourseID  string `json:"idMateria,omitempty"`
	Preview   string `json:"preview,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

// SlotWorkflow is the in-memory state of one registration selection. It is
// a pure state machine: every mutation either applies fully or returns a
// guard error and leaves the state untouched. Persistence happens only when
// the caller saves the confirmed set.
type SlotWorkflow struct {
	TermID     int64       `json:"idMatricula"`
	TermActive bool        `json:"termActive"`
	Edit       bool        `json:"edit"`
	EventAt    time.Time   `json:"fechaInscripcion,omitempty"`
	Slots      []SlotState `json:"slots"`
	MaxSlots   int         `json:"maxSlots"`
}

// NewSlotWorkflow starts a fresh selection for a term.
func NewSlotWorkflow(termID int64, termActive bool, maxSlots int) *SlotWorkflow {
	if maxSlots < 1 {
		maxSlots = 1
	}
	return &SlotWorkflow{TermID: termID, TermActive: termActive, MaxSlots: maxSlots}
}

// NewEditWorkflow starts a selection prefilled from an existing event. Each
// held course occupies one confirmed slot.
func NewEditWorkflow(termID int64, termActive bool, maxSlots int, eventAt time.Time, courseIDs []string) *SlotWorkflow {
	w := NewSlotWorkflow(termID, termActive, maxSlots)
	w.Edit = true
	w.EventAt = eventAt
	if len(courseIDs) > w.MaxSlots {
		w.MaxSlots = len(courseIDs)
	}
	for _, id := range courseIDs {
		w.Slots = append(w.Slots, SlotState{CourseID: id, Confirmed: true})
	}
	return w
}

// SetSlotCount resizes the slot list. Growing appends empty slots; shrinking
// below a confirmed slot is refused unless force is set, in which case the
// excess selections are discarded.
func (w *SlotWorkflow) SetSlotCount(count int, force bool) error {
	if count < 1 || count > w.MaxSlots {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot count must be between 1 and %d", w.MaxSlots))
	}
	if count < len(w.Slots) {
		discarded := 0
		for _, slot := range w.Slots[count:] {
			if slot.Confirmed {
				discarded++
			}
		}
		if discarded > 0 && !force {
			return appErrors.Clone(appErrors.ErrSlotTruncation, fmt.Sprintf("reducing to %d slots would discard %d confirmed selections", count, discarded))
		}
		w.Slots = w.Slots[:count]
		return nil
	}
	for len(w.Slots) < count {
		w.Slots = append(w.Slots, SlotState{})
	}
	return nil
}

// PreviewCourse stages a course in a slot. A course already held or
// previewed by another slot is refused, naming the slot that holds it.
func (w *SlotWorkflow) PreviewCourse(slot int, courseID string) error {
	if err := w.checkSlot(slot); err != nil {
		return err
	}
	if courseID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	for i, other := range w.Slots {
		if i == slot {
			continue
		}
		if other.CourseID == courseID || other.Preview == courseID {
			return appErrors.Clone(appErrors.ErrDuplicateCourse, fmt.Sprintf("course already selected in slot %d", i+1))
		}
	}
	w.Slots[slot].Preview = courseID
	return nil
}

// ConfirmPreview promotes the slot's previewed course to a confirmed
// selection.
func (w *SlotWorkflow) ConfirmPreview(slot int) error {
	if err := w.checkSlot(slot); err != nil {
		return err
	}
	if w.Slots[slot].Preview == "" {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "slot has no previewed course to confirm")
	}
	w.Slots[slot].CourseID = w.Slots[slot].Preview
	w.Slots[slot].Preview = ""
	w.Slots[slot].Confirmed = true
	return nil
}

// RemoveSlot clears a slot. While editing an event of an active term the
// last confirmed course cannot be removed.
func (w *SlotWorkflow) RemoveSlot(slot int) error {
	if err := w.checkSlot(slot); err != nil {
		return err
	}
	if w.Edit && w.TermActive && w.Slots[slot].Confirmed && w.confirmedCount() == 1 {
		return appErrors.Clone(appErrors.ErrLastCourseGuard, "cannot remove the last course of an event while the term is active")
	}
	w.Slots[slot] = SlotState{}
	return nil
}

// ConfirmedCourseIDs returns the confirmed selections in slot order.
func (w *SlotWorkflow) ConfirmedCourseIDs() []string {
	ids := make([]string, 0, len(w.Slots))
	for _, slot := range w.Slots {
		if slot.Confirmed {
			ids = append(ids, slot.CourseID)
		}
	}
	return ids
}

// Complete reports whether every slot holds a confirmed course.
func (w *SlotWorkflow) Complete() bool {
	if len(w.Slots) == 0 {
		return false
	}
	for _, slot := range w.Slots {
		if !slot.Confirmed {
			return false
		}
	}
	return true
}

func (w *SlotWorkflow) checkSlot(slot int) error {
	if slot < 0 || slot >= len(w.Slots) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %d does not exist", slot+1))
	}
	return nil
}

func (w *SlotWorkflow) confirmedCount() int {
	count := 0
	for _, slot := range w.Slots {
		if slot.Confirmed {
			count++
		}
	}
	return count
}
