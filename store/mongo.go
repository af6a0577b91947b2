package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kendall-kelly/labtest-api/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultDatabaseName is used when no database name is configured
const DefaultDatabaseName = "digital_healthcare"

// MongoStore implements Store on a MongoDB database
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func openMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if dbName == "" {
		dbName = DefaultDatabaseName
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) Users() UserRepository       { return mongoUsers{s.collection(UsersCollection)} }
func (s *MongoStore) Bookings() BookingRepository { return mongoBookings{s.collection(BookingsCollection)} }
func (s *MongoStore) Reports() ReportRepository   { return mongoReports{s.collection(ReportsCollection)} }
func (s *MongoStore) Backend() string             { return "mongodb" }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Collections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Migrate creates the indexes the repositories rely on
func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		BookingsCollection: {
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "tech_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		ReportsCollection: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "pdf_url", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translateMongo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func newObjectID() string {
	return primitive.NewObjectID().Hex()
}

// idFilter matches an _id stored either as a hex string or as an ObjectID.
// Accounts created by the earlier deployment carry ObjectID keys.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, translateMongo(err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translateMongo(err)
	}
	return &out, nil
}

type mongoUsers struct{ coll *mongo.Collection }

func (r mongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, u)
	return translateMongo(err)
}

func (r mongoUsers) ByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, idFilter(id))
}

func (r mongoUsers) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.M{"email": email})
}

func (r mongoUsers) UpdateProfile(ctx context.Context, id string, p models.Profile) error {
	res, err := r.coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{
		"full_name":  p.FullName,
		"phone":      p.Phone,
		"dob":        p.DOB,
		"address":    p.Address,
		"gender":     p.Gender,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoBookings struct{ coll *mongo.Collection }

func (r mongoBookings) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = newObjectID()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, b)
	return translateMongo(err)
}

func (r mongoBookings) ByID(ctx context.Context, id string) (*models.Booking, error) {
	return findOne[models.Booking](ctx, r.coll, idFilter(id))
}

func (r mongoBookings) ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return findAll[models.Booking](ctx, r.coll, bson.M{"patient_id": patientID}, opts)
}

func (r mongoBookings) ListByStatus(ctx context.Context, statuses ...models.BookingStatus) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[models.Booking](ctx, r.coll, bson.M{"status": bson.M{"$in": statusStrings(statuses)}}, opts)
}

func (r mongoBookings) ListAssigned(ctx context.Context, techID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	filter := bson.M{"tech_id": techID, "status": bson.M{"$in": statusStrings(statuses)}}
	return findAll[models.Booking](ctx, r.coll, filter, opts)
}

func (r mongoBookings) Transition(ctx context.Context, id string, t Transition) error {
	filter := idFilter(id)
	if t.ExpectStatus != "" {
		filter["status"] = string(t.ExpectStatus)
	}
	if t.ExpectTech != "" {
		filter["tech_id"] = t.ExpectTech
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range t.fields() {
		set[k] = v
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, idFilter(id))
	if err != nil {
		return translateMongo(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

type mongoReports struct{ coll *mongo.Collection }

func (r mongoReports) Create(ctx context.Context, rep *models.Report) error {
	if rep.ID == "" {
		rep.ID = newObjectID()
	}
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, rep)
	return translateMongo(err)
}

func (r mongoReports) ListByPatient(ctx context.Context, patientID string) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	return findAll[models.Report](ctx, r.coll, bson.M{"patient_id": patientID}, opts)
}

func (r mongoReports) ByBooking(ctx context.Context, bookingID string) (*models.Report, error) {
	return findOne[models.Report](ctx, r.coll, bson.M{"booking_id": bookingID})
}

func (r mongoReports) ByFileName(ctx context.Context, fileName string) (*models.Report, error) {
	return findOne[models.Report](ctx, r.coll, bson.M{"pdf_url": fileName})
}
