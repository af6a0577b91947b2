// Package store is the document store client. It owns the single database
// handle of the process and exposes typed repositories over the users,
// bookings and reports collections.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/labtest-api/models"
)

// Collection names shared by every backend
const (
	UsersCollection    = "users"
	BookingsCollection = "bookings"
	ReportsCollection  = "reports"
)

var (
	// ErrNotFound is returned when no document matches the lookup
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key (user email, report booking) already exists
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict is returned when a guarded update finds the document in another state
	ErrConflict = errors.New("store: precondition failed")
)

// Store is an open connection to the backing database
type Store interface {
	Users() UserRepository
	Bookings() BookingRepository
	Reports() ReportRepository

	// Migrate creates tables or indexes. It is safe to run repeatedly.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	// Collections lists the tables or collections present in the database
	Collections(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
	// Backend names the driver in use ("mongodb", "postgres" or "sqlite")
	Backend() string
}

// UserRepository stores accounts
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.Profile) error
}

// BookingRepository stores bookings
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	ByID(ctx context.Context, id string) (*models.Booking, error)
	// ListByPatient returns the patient's bookings newest first
	ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error)
	// ListByStatus returns bookings in any of the given statuses, oldest first
	ListByStatus(ctx context.Context, statuses ...models.BookingStatus) ([]models.Booking, error)
	// ListAssigned returns bookings bound to the technician in any of the given statuses
	ListAssigned(ctx context.Context, techID string, statuses ...models.BookingStatus) ([]models.Booking, error)
	// Transition applies a status change. It returns ErrNotFound for an unknown
	// id and ErrConflict when one of the guards does not hold.
	Transition(ctx context.Context, id string, t Transition) error
}

// ReportRepository stores report metadata
type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	// ListByPatient returns the patient's reports newest first
	ListByPatient(ctx context.Context, patientID string) ([]models.Report, error)
	ByBooking(ctx context.Context, bookingID string) (*models.Report, error)
	ByFileName(ctx context.Context, fileName string) (*models.Report, error)
}

// Transition describes a single status update on a booking
type Transition struct {
	To models.BookingStatus
	// BindTech, when set, is written to tech_id together with the status
	BindTech string
	// ExpectStatus guards the update on the current status. Empty means unconditional.
	ExpectStatus models.BookingStatus
	// ExpectTech guards the update on the bound technician. Empty means any.
	ExpectTech string
}

func (t Transition) fields() map[string]any {
	fields := map[string]any{"status": string(t.To)}
	if t.BindTech != "" {
		fields["tech_id"] = t.BindTech
	}
	return fields
}

// Open connects to the database named by url and pings it once.
// The backend is chosen from the url scheme:
//
//	mongodb://, mongodb+srv://  MongoDB, using database dbName
//	postgres://, postgresql://  PostgreSQL through gorm
//	sqlite://path, file:..., or a bare path  SQLite through gorm
func Open(ctx context.Context, url, dbName string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case url == "":
		return nil, fmt.Errorf("store: empty connection string")
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		s, err = openMongo(ctx, url, dbName)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err = openPostgres(url)
	case strings.HasPrefix(url, "sqlite://"):
		s, err = openSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("store: unsupported connection scheme in %q", redact(url))
	default:
		s, err = openSQLite(url)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("store: ping %s: %w", s.Backend(), err)
	}
	return s, nil
}

// redact hides credentials in a connection string before it is logged
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
