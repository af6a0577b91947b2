package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/labtest-api/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")

	booking, err := env.bookings.Create(ctx, patient, BookingInput{
		TestName: "Lipid Profile",
		Date:     "2025-01-01",
		Time:     "10:00",
		Notes:    "fasting",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Nil(t, booking.TechID, "no technician bound on creation")
	assert.Equal(t, patient.ID, booking.PatientID)
	assert.Equal(t, "Asha Rao", booking.PatientName, "name defaults from profile")
	assert.Equal(t, "p@example.com", booking.PatientEmail)
	assert.Equal(t, "1990-04-12", booking.PatientDOB)
	assert.Equal(t, "12 Lake Road", booking.Address)
	assert.Equal(t, "fasting", booking.Notes)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.BookingsCreated))

	override, err := env.bookings.Create(ctx, patient, BookingInput{
		TestName: "CBC", Date: "2025-02-01", Time: "08:30",
		Address: "Clinic annex", FullName: "A. Rao",
	})
	require.NoError(t, err)
	assert.Equal(t, "Clinic annex", override.Address)
	assert.Equal(t, "A. Rao", override.PatientName)
}

func TestCreateBookingRejections(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	tech := env.newTechnician(t, "t@example.com")
	valid := BookingInput{TestName: "CBC", Date: "2025-01-01", Time: "10:00"}

	_, err := env.bookings.Create(ctx, tech, valid)
	assert.ErrorIs(t, err, ErrForbidden, "technicians cannot book")

	incomplete := &models.Patient{ID: patient.ID, Profile: models.Profile{FullName: "Asha"}}
	_, err = env.bookings.Create(ctx, incomplete, valid)
	assert.ErrorIs(t, err, ErrProfileIncomplete)

	tests := []struct {
		name  string
		input BookingInput
	}{
		{"missing test", BookingInput{Date: "2025-01-01", Time: "10:00"}},
		{"bad date", BookingInput{TestName: "CBC", Date: "01/01/2025", Time: "10:00"}},
		{"bad time", BookingInput{TestName: "CBC", Date: "2025-01-01", Time: "10am"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookings.Create(ctx, patient, tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	history, err := env.bookings.History(ctx, patient)
	require.NoError(t, err)
	assert.Empty(t, history.Bookings, "rejected requests create nothing")
}

func TestStrictLifecycle(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	tech := env.newTechnician(t, "t1@example.com")
	other := env.newTechnician(t, "t2@example.com")
	booking := env.newBooking(t, patient)

	_, err := env.bookings.Collect(ctx, tech, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot skip accepted")

	accepted, err := env.bookings.Accept(ctx, tech, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.True(t, accepted.AssignedTo(tech.ID))

	_, err = env.bookings.Accept(ctx, other, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "first accept wins")
	assert.Contains(t, err.Error(), "already been accepted")

	_, err = env.bookings.Collect(ctx, other, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "another technician")

	collected, err := env.bookings.Collect(ctx, tech, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCollected, collected.Status)
	assert.True(t, collected.AssignedTo(tech.ID), "technician stays bound")

	_, err = env.bookings.CheckCompletable(ctx, other, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := env.bookings.Complete(ctx, tech, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	_, err = env.bookings.Collect(ctx, tech, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "completed is terminal")

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.BookingTransitions.WithLabelValues("accepted", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.BookingTransitions.WithLabelValues("accepted", "rejected")))
}

func TestStrictAcceptOfProgressedBooking(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	tech := env.newTechnician(t, "t1@example.com")
	other := env.newTechnician(t, "t2@example.com")

	collected := env.newBooking(t, patient)
	_, err := env.bookings.Accept(ctx, tech, collected.ID)
	require.NoError(t, err)
	_, err = env.bookings.Collect(ctx, tech, collected.ID)
	require.NoError(t, err)

	completed := env.newBooking(t, patient)
	_, err = env.bookings.Accept(ctx, tech, completed.ID)
	require.NoError(t, err)
	_, err = env.bookings.Collect(ctx, tech, completed.ID)
	require.NoError(t, err)
	_, err = env.bookings.Complete(ctx, tech, completed.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		message string
	}{
		{"collected", collected.ID, "Booking is collected and cannot move to accepted"},
		{"completed", completed.ID, "Booking is completed and cannot move to accepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookings.Accept(ctx, other, tt.id)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Contains(t, err.Error(), tt.message)
			assert.NotContains(t, err.Error(), "already been accepted")
		})
	}
}

func TestPermissiveLifecycle(t *testing.T) {
	env := setupServices(t, false)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	tech := env.newTechnician(t, "t1@example.com")
	other := env.newTechnician(t, "t2@example.com")
	booking := env.newBooking(t, patient)

	_, err := env.bookings.Accept(ctx, tech, booking.ID)
	require.NoError(t, err)

	// concurrent accepts are last-writer-wins
	second, err := env.bookings.Accept(ctx, other, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, second.Status)
	assert.True(t, second.AssignedTo(other.ID))

	// any technician may collect, and steps may be skipped
	fresh := env.newBooking(t, patient)
	collected, err := env.bookings.Collect(ctx, tech, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCollected, collected.Status)
	assert.Nil(t, collected.TechID)
}

func TestTransitionsRequireTechnicianAndKnownBooking(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	tech := env.newTechnician(t, "t@example.com")
	booking := env.newBooking(t, patient)

	_, err := env.bookings.Accept(ctx, patient, booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.bookings.Accept(ctx, tech, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = env.bookings.Collect(ctx, tech, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = env.bookings.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestQueueWorklistHistory(t *testing.T) {
	env := setupServices(t, true)
	ctx := context.Background()
	patient := env.newPatient(t, "p@example.com")
	someoneElse := env.newPatient(t, "q@example.com")
	tech := env.newTechnician(t, "t1@example.com")
	other := env.newTechnician(t, "t2@example.com")

	first := env.newBooking(t, patient)
	second := env.newBooking(t, patient)
	third := env.newBooking(t, someoneElse)

	_, err := env.bookings.Accept(ctx, tech, first.ID)
	require.NoError(t, err)
	_, err = env.bookings.Accept(ctx, other, third.ID)
	require.NoError(t, err)

	queue, err := env.bookings.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	work, err := env.bookings.Worklist(ctx, tech)
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, first.ID, work[0].ID)

	_, err = env.bookings.Worklist(ctx, patient)
	assert.ErrorIs(t, err, ErrForbidden)

	history, err := env.bookings.History(ctx, patient)
	require.NoError(t, err)
	require.Len(t, history.Bookings, 2, "only the patient's own bookings")
	for _, b := range history.Bookings {
		assert.Equal(t, patient.ID, b.PatientID)
	}
	assert.False(t, history.Bookings[0].CreatedAt.Before(history.Bookings[1].CreatedAt), "newest first")

	_, err = env.bookings.History(ctx, tech)
	assert.ErrorIs(t, err, ErrForbidden)
}
