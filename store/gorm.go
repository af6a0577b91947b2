package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/labtest-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a relational database through gorm.
// Each collection maps to a table of the same name.
type GormStore struct {
	db      *gorm.DB
	backend string
}

func openPostgres(url string) (*GormStore, error) {
	return openGorm(postgres.Open(url), "postgres")
}

func openSQLite(path string) (*GormStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty sqlite path")
	}
	s, err := openGorm(sqlite.Open(path), "sqlite")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return s, nil
}

func openGorm(dialector gorm.Dialector, backend string) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &GormStore{db: db, backend: backend}, nil
}

// NewGormStore wraps an already opened gorm handle
func NewGormStore(db *gorm.DB, backend string) *GormStore {
	return &GormStore{db: db, backend: backend}
}

// DB returns the underlying gorm handle
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) collection(ctx context.Context, name string) *gorm.DB {
	return s.db.WithContext(ctx).Table(name)
}

func (s *GormStore) Users() UserRepository       { return gormUsers{s} }
func (s *GormStore) Bookings() BookingRepository { return gormBookings{s} }
func (s *GormStore) Reports() ReportRepository   { return gormReports{s} }
func (s *GormStore) Backend() string             { return s.backend }

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Booking{}, &models.Report{})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Collections(ctx context.Context) ([]string, error) {
	tables, err := s.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	// Works with both PostgreSQL and SQLite when translation is unavailable
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

type gormUsers struct{ s *GormStore }

func (r gormUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return translate(r.s.collection(ctx, UsersCollection).Create(u).Error)
}

func (r gormUsers) ByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.s.collection(ctx, UsersCollection).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r gormUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.s.collection(ctx, UsersCollection).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r gormUsers) UpdateProfile(ctx context.Context, id string, p models.Profile) error {
	res := r.s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"full_name": p.FullName,
		"phone":     p.Phone,
		"dob":       p.DOB,
		"address":   p.Address,
		"gender":    p.Gender,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormBookings struct{ s *GormStore }

func (r gormBookings) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return translate(r.s.collection(ctx, BookingsCollection).Create(b).Error)
}

func (r gormBookings) ByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.s.collection(ctx, BookingsCollection).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r gormBookings) ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error) {
	var out []models.Booking
	err := r.s.collection(ctx, BookingsCollection).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	return out, translate(err)
}

func (r gormBookings) ListByStatus(ctx context.Context, statuses ...models.BookingStatus) ([]models.Booking, error) {
	var out []models.Booking
	err := r.s.collection(ctx, BookingsCollection).
		Where("status IN ?", statusStrings(statuses)).
		Order("created_at ASC").
		Find(&out).Error
	return out, translate(err)
}

func (r gormBookings) ListAssigned(ctx context.Context, techID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	var out []models.Booking
	err := r.s.collection(ctx, BookingsCollection).
		Where("tech_id = ? AND status IN ?", techID, statusStrings(statuses)).
		Order("created_at ASC").
		Find(&out).Error
	return out, translate(err)
}

func (r gormBookings) Transition(ctx context.Context, id string, t Transition) error {
	q := r.s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id)
	if t.ExpectStatus != "" {
		q = q.Where("status = ?", string(t.ExpectStatus))
	}
	if t.ExpectTech != "" {
		q = q.Where("tech_id = ?", t.ExpectTech)
	}

	res := q.Updates(t.fields())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.s.collection(ctx, BookingsCollection).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type gormReports struct{ s *GormStore }

func (r gormReports) Create(ctx context.Context, rep *models.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now().UTC()
	}
	return translate(r.s.collection(ctx, ReportsCollection).Create(rep).Error)
}

func (r gormReports) ListByPatient(ctx context.Context, patientID string) ([]models.Report, error) {
	var out []models.Report
	err := r.s.collection(ctx, ReportsCollection).
		Where("patient_id = ?", patientID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order("id DESC").
		Find(&out).Error
	return out, translate(err)
}

func (r gormReports) ByBooking(ctx context.Context, bookingID string) (*models.Report, error) {
	var rep models.Report
	if err := r.s.collection(ctx, ReportsCollection).Where("booking_id = ?", bookingID).First(&rep).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r gormReports) ByFileName(ctx context.Context, fileName string) (*models.Report, error) {
	var rep models.Report
	if err := r.s.collection(ctx, ReportsCollection).Where("pdf_url = ?", fileName).First(&rep).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
