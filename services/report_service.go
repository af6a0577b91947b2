package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/kendall-kelly/labtest-api/utils"
	"github.com/rs/zerolog/log"
)

// UploadInput is the report upload form
type UploadInput struct {
	BookingID   string                `form:"booking_id"`
	PatientID   string                `form:"patient_id"`
	Description string                `form:"description"`
	File        *multipart.FileHeader `form:"-"`
}

// ReportService stores PDF reports and completes their bookings
type ReportService struct {
	bookings *BookingService
	reports  store.ReportRepository
	storage  ReportStorage
	maxSize  int64
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewReportService creates a report service. maxSize is the upload limit in bytes.
func NewReportService(bookings *BookingService, reports store.ReportRepository, storage ReportStorage, maxSize int64, m *metrics.Metrics) *ReportService {
	return &ReportService{
		bookings: bookings,
		reports:  reports,
		storage:  storage,
		maxSize:  maxSize,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upload validates the file, writes it to storage as "<bookingID>_<name>",
// records a Report and completes the booking. A rejected upload writes nothing.
func (s *ReportService) Upload(ctx context.Context, p models.Principal, in UploadInput) (*models.Report, error) {
	tech, err := asTechnician(p)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateReportFile(in.File, s.maxSize); err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			s.metrics.UploadRejected(uploadErr.Code)
		}
		return nil, err
	}

	booking, err := s.bookings.CheckCompletable(ctx, tech, strings.TrimSpace(in.BookingID))
	if err != nil {
		return nil, err
	}
	if _, err := s.reports.ByBooking(ctx, booking.ID); err == nil {
		return nil, ErrReportExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if in.PatientID != "" && in.PatientID != booking.PatientID {
		log.Warn().Str("booking_id", booking.ID).Str("form_patient_id", in.PatientID).
			Msg("Upload patient id does not match booking, using the booking's patient")
	}

	name := utils.StoredReportName(booking.ID, in.File.Filename)
	stored, err := s.save(ctx, name, in.File)
	if errors.Is(err, ErrObjectExists) {
		return nil, ErrReportExists.with(err, "")
	}
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		BookingID:    booking.ID,
		PatientID:    booking.PatientID,
		TechnicianID: tech.ID,
		Description:  strings.TrimSpace(in.Description),
		FileName:     stored,
		Timestamp:    s.now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		if delErr := s.storage.Delete(ctx, stored); delErr != nil {
			log.Error().Err(delErr).Str("file", stored).Msg("Failed to remove orphaned report file")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrReportExists.with(err, "")
		}
		return nil, err
	}

	if _, err := s.bookings.Complete(ctx, tech, booking.ID); err != nil {
		log.Error().Err(err).Str("booking_id", booking.ID).Str("report_id", report.ID).
			Msg("Report stored but booking could not be completed")
		return nil, err
	}

	s.metrics.ReportUploaded()
	log.Info().Str("booking_id", booking.ID).Str("report_id", report.ID).Str("file", stored).Msg("Report uploaded")
	return report, nil
}

func (s *ReportService) save(ctx context.Context, name string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close uploaded file")
		}
	}()

	return s.storage.Save(ctx, name, src)
}

// Open returns the stored report with the given file name. Any logged-in
// user may fetch any report by name.
func (s *ReportService) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	if err := utils.ValidateStoredName(filename); err != nil {
		return nil, err
	}
	rc, err := s.storage.Open(ctx, filename)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, ErrReportNotFound
	}
	return rc, err
}
