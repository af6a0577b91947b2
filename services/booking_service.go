package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/rs/zerolog/log"
)

const (
	bookingDateLayout = "2006-01-02"
	bookingTimeLayout = "15:04"
)

// BookingInput is the booking form. Patient details left empty are taken from the profile.
type BookingInput struct {
	TestName     string `form:"test_name"`
	Date         string `form:"date"`
	Time         string `form:"time"`
	Address      string `form:"address"`
	Notes        string `form:"notes"`
	FullName     string `form:"full_name"`
	PatientEmail string `form:"patient_email"`
	DOB          string `form:"dob"`
}

// History is what a patient sees on the history page
type History struct {
	Bookings []models.Booking
	Reports  []models.Report
}

// BookingService drives the booking lifecycle pending → accepted → collected → completed
type BookingService struct {
	bookings store.BookingRepository
	reports  store.ReportRepository
	strict   bool
	metrics  *metrics.Metrics
}

// NewBookingService creates a booking service. With strict set, every transition
// is guarded on the expected current status and bound technician; without it
// transitions are unconditional and concurrent writers race, last write wins.
func NewBookingService(bookings store.BookingRepository, reports store.ReportRepository, strict bool, m *metrics.Metrics) *BookingService {
	return &BookingService{bookings: bookings, reports: reports, strict: strict, metrics: m}
}

// Strict reports whether transitions are enforced
func (s *BookingService) Strict() bool {
	return s.strict
}

func asPatient(p models.Principal) (*models.Patient, error) {
	patient, ok := p.(*models.Patient)
	if !ok {
		return nil, ErrForbidden
	}
	return patient, nil
}

func asTechnician(p models.Principal) (*models.Technician, error) {
	tech, ok := p.(*models.Technician)
	if !ok {
		return nil, ErrForbidden
	}
	return tech, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Create books a test for a patient whose profile is complete. The booking starts pending with no technician.
func (s *BookingService) Create(ctx context.Context, p models.Principal, in BookingInput) (*models.Booking, error) {
	patient, err := asPatient(p)
	if err != nil {
		return nil, err
	}
	if !patient.ProfileComplete() {
		return nil, ErrProfileIncomplete
	}

	testName := strings.TrimSpace(in.TestName)
	if testName == "" {
		return nil, ErrValidation.with(nil, "Please choose a test")
	}
	date := strings.TrimSpace(in.Date)
	if _, err := time.Parse(bookingDateLayout, date); err != nil {
		return nil, ErrValidation.with(err, "Date must be in YYYY-MM-DD format")
	}
	clock := strings.TrimSpace(in.Time)
	if _, err := time.Parse(bookingTimeLayout, clock); err != nil {
		return nil, ErrValidation.with(err, "Time must be in HH:MM format")
	}

	booking := &models.Booking{
		PatientID:    patient.ID,
		PatientName:  firstNonEmpty(in.FullName, patient.Profile.FullName, patient.Username),
		PatientEmail: firstNonEmpty(in.PatientEmail, patient.Email),
		PatientDOB:   firstNonEmpty(in.DOB, patient.Profile.DOB),
		TestName:     testName,
		Date:         date,
		Time:         clock,
		Address:      firstNonEmpty(in.Address, patient.Profile.Address),
		Notes:        strings.TrimSpace(in.Notes),
		Status:       models.StatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.metrics.BookingCreated()
	log.Info().Str("booking_id", booking.ID).Str("patient_id", patient.ID).Str("test", testName).Msg("Booking created")
	return booking, nil
}

// Get returns a booking by id
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// Accept binds the technician to a pending booking
func (s *BookingService) Accept(ctx context.Context, p models.Principal, id string) (*models.Booking, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}
	t := store.Transition{To: models.StatusAccepted, BindTech: tech.ID}
	if s.strict {
		t.ExpectStatus = models.StatusPending
	}
	return s.apply(ctx, tech, id, t)
}

// Collect marks the sample of an accepted booking as collected
func (s *BookingService) Collect(ctx context.Context, p models.Principal, id string) (*models.Booking, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}
	t := store.Transition{To: models.StatusCollected}
	if s.strict {
		t.ExpectStatus = models.StatusAccepted
		t.ExpectTech = tech.ID
	}
	return s.apply(ctx, tech, id, t)
}

// Complete marks a collected booking completed. It is called once the report is stored.
func (s *BookingService) Complete(ctx context.Context, p models.Principal, id string) (*models.Booking, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}
	t := store.Transition{To: models.StatusCompleted}
	if s.strict {
		t.ExpectStatus = models.StatusCollected
		t.ExpectTech = tech.ID
	}
	return s.apply(ctx, tech, id, t)
}

// CheckCompletable verifies, before any file is written, that tech may complete the booking
func (s *BookingService) CheckCompletable(ctx context.Context, p models.Principal, id string) (*models.Booking, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.strict && (b.Status != models.StatusCollected || !b.AssignedTo(tech.ID)) {
		return nil, s.transitionError(b, models.StatusCompleted)
	}
	return b, nil
}

func (s *BookingService) apply(ctx context.Context, tech *models.Technician, id string, t store.Transition) (*models.Booking, error) {
	err := s.bookings.Transition(ctx, id, t)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.metrics.Transition(string(t.To), false)
		return nil, ErrBookingNotFound
	case errors.Is(err, store.ErrConflict):
		s.metrics.Transition(string(t.To), false)
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, ErrInvalidTransition.with(err, "")
		}
		log.Warn().Str("booking_id", id).Str("tech_id", tech.ID).
			Str("status", string(current.Status)).Str("to", string(t.To)).
			Msg("Booking transition rejected")
		return nil, s.transitionError(current, t.To)
	case err != nil:
		return nil, err
	}

	s.metrics.Transition(string(t.To), true)
	log.Info().Str("booking_id", id).Str("tech_id", tech.ID).Str("status", string(t.To)).Msg("Booking status changed")
	return s.Get(ctx, id)
}

func (s *BookingService) transitionError(b *models.Booking, to models.BookingStatus) error {
	var msg string
	switch {
	case to == models.StatusAccepted && b.Status == models.StatusAccepted:
		msg = "This booking has already been accepted"
	case b.Status.CanTransition(to):
		msg = "This booking is assigned to another technician"
	default:
		msg = "Booking is " + string(b.Status) + " and cannot move to " + string(to)
	}
	return ErrInvalidTransition.with(nil, msg)
}

// Queue lists every pending booking, oldest first
func (s *BookingService) Queue(ctx context.Context) ([]models.Booking, error) {
	return s.bookings.ListByStatus(ctx, models.StatusPending)
}

// Worklist lists the technician's accepted and collected bookings
func (s *BookingService) Worklist(ctx context.Context, p models.Principal) ([]models.Booking, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListAssigned(ctx, tech.ID, models.StatusAccepted, models.StatusCollected)
}

// History lists the patient's bookings and reports, newest first
func (s *BookingService) History(ctx context.Context, p models.Principal) (*History, error) {
	patient, err := asPatient(p)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListByPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.ListByPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	return &History{Bookings: bookings, Reports: reports}, nil
}
