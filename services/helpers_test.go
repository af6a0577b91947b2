package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	store    store.Store
	auth     *AuthService
	bookings *BookingService
	reports  *ReportService
	storage  *MockReportStorage
	metrics  *metrics.Metrics
}

func setupServices(t *testing.T, strict bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "services.db"), "")
	require.NoError(t, err, "Failed to open test store")
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close(ctx) })

	m := metrics.New()
	storage := NewMockReportStorage()
	bookings := NewBookingService(s.Bookings(), s.Reports(), strict, m)

	return &testEnv{
		store:    s,
		auth:     NewAuthService(s.Users(), NewBcryptHasher(bcrypt.MinCost), m),
		bookings: bookings,
		reports:  NewReportService(bookings, s.Reports(), storage, 10*1024*1024, m),
		storage:  storage,
		metrics:  m,
	}
}

func fullProfile() models.Profile {
	return models.Profile{
		FullName: "Asha Rao",
		Phone:    "555-0100",
		DOB:      "1990-04-12",
		Address:  "12 Lake Road",
		Gender:   "female",
	}
}

// newPatient registers a patient with a complete profile
func (e *testEnv) newPatient(t *testing.T, email string) *models.Patient {
	t.Helper()
	ctx := context.Background()
	u, err := e.auth.Register(ctx, RegisterInput{Username: "patient", Email: email, Password: "secret-pw", Role: "patient"})
	require.NoError(t, err)
	u, err = e.auth.UpdateProfile(ctx, u.ID, fullProfile())
	require.NoError(t, err)
	p, err := models.PrincipalFor(u)
	require.NoError(t, err)
	return p.(*models.Patient)
}

func (e *testEnv) newTechnician(t *testing.T, email string) *models.Technician {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Username: "tech", Email: email, Password: "secret-pw", Role: "technician"})
	require.NoError(t, err)
	p, err := models.PrincipalFor(u)
	require.NoError(t, err)
	return p.(*models.Technician)
}

func (e *testEnv) newBooking(t *testing.T, patient *models.Patient) *models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), patient, BookingInput{TestName: "CBC", Date: "2025-01-01", Time: "10:00"})
	require.NoError(t, err)
	return b
}

// fileHeader builds a multipart.FileHeader the way gin would hand it to a handler
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="report_pdf"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["report_pdf"][0]
}
