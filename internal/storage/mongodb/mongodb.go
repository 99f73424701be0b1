// Package mongodb provides a MongoDB-backed implementation of the
// storage.Storage interface.
//
// Students live in a single "students" collection. Two indexes back the
// roster's guarantees:
//
//	{rollNumber: 1} unique   enforces roll number uniqueness server-side
//	{skills: 1}              multikey index used by the $regex skill search
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aanand-mishra/skillset-api/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultDatabase is used when the connection string names no database.
	DefaultDatabase = "studentSkillsetDB"

	collectionName = "students"
	disconnectWait = 5 * time.Second
)

// document is the BSON shape of a student. A nil GuardianPhone is stored as
// null, which is what the day-scholar query matches on.
type document struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	RollNumber    int64              `bson:"rollNumber"`
	Name          string             `bson:"name"`
	GuardianPhone *string            `bson:"guardianPhone"`
	Skills        []string           `bson:"skills"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func toDocument(s types.Student) document {
	return document{
		RollNumber:    s.RollNumber,
		Name:          s.Name,
		GuardianPhone: s.GuardianPhone.Ptr(),
		Skills:        types.SkillsToStrings(s.Skills),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (d document) student() types.Student {
	return types.Student{
		RollNumber:    d.RollNumber,
		Name:          d.Name,
		GuardianPhone: types.PhoneFromPtr(d.GuardianPhone),
		Skills:        types.SkillsFromStrings(d.Skills),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// Mongo is the concrete implementation of storage.Storage.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection

	// indexed records that EnsureIndexes succeeded. Inserts are refused
	// until it has, since without the unique index duplicates would slip in.
	// Concurrent callers share one in-flight attempt through indexing.
	indexing singleflight.Group
	indexed  atomic.Bool
}

// New configures a client for uri. The driver connects lazily, so New does
// not fail when the server is down; use Ping to find out.
//
// connectTimeout bounds both TCP connect and server selection, so every
// operation against an unreachable server fails after that long instead of
// the driver's 30s default.
func New(ctx context.Context, uri string, connectTimeout time.Duration) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: connect: %w", err)
	}

	db, err := databaseName(uri)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb.New: %w", err)
	}

	coll := client.Database(db).Collection(collectionName)
	return &Mongo{client: client, coll: coll}, nil
}

// databaseName returns the database named in the connection string, with
// percent-escapes decoded, or DefaultDatabase when none is given:
// mongodb://h1:27017,h2:27017/roster?replicaSet=rs → "roster".
func databaseName(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse connection string: %w", err)
	}
	if cs.Database == "" {
		return DefaultDatabase, nil
	}
	return cs.Database, nil
}

// EnsureIndexes creates the unique roll number index and the skills index.
// Creating an index that already exists with the same keys and options is
// a no-op on the server.
//
// While the server is down, callers arriving during an attempt wait for
// that attempt instead of starting their own.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if m.indexed.Load() {
		return nil
	}

	_, err, _ := m.indexing.Do("indexes", func() (any, error) {
		if m.indexed.Load() {
			return nil, nil
		}
		_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "rollNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "skills", Value: 1}},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("EnsureIndexes: %w", err)
		}
		m.indexed.Store(true)
		return nil, nil
	})
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts s. It first makes sure the unique roll number index
// exists and refuses the insert when it cannot, so a duplicate never gets
// in while the index is missing. A duplicate key error from the server is
// returned as types.ErrDuplicateRollNumber.
// ─────────────────────────────────────────────────────────────────────────────
func (m *Mongo) CreateStudent(ctx context.Context, s types.Student) error {
	if err := m.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("CreateStudent: %w", err)
	}

	if _, err := m.coll.InsertOne(ctx, toDocument(s)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.ErrDuplicateRollNumber
		}
		return fmt.Errorf("CreateStudent: insert: %w", err)
	}
	return nil
}

// GetStudentByRollNumber returns types.ErrNotFound when no document matches.
func (m *Mongo) GetStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error) {
	var d document
	err := m.coll.FindOne(ctx, byRollNumber(rollNumber)).Decode(&d)
	if err != nil {
		return types.Student{}, notFound("GetStudentByRollNumber", err)
	}
	return d.student(), nil
}

// GetStudents returns every student ordered by roll number.
func (m *Mongo) GetStudents(ctx context.Context) ([]types.Student, error) {
	return m.find(ctx, "GetStudents", bson.D{})
}

// GetStudentsBySkillPattern matches the pattern against each element of the
// skills array; a document matches when any element does.
func (m *Mongo) GetStudentsBySkillPattern(ctx context.Context, pattern string) ([]types.Student, error) {
	filter := bson.D{{Key: "skills", Value: primitive.Regex{Pattern: pattern, Options: "i"}}}
	return m.find(ctx, "GetStudentsBySkillPattern", filter)
}

// GetDayScholars matches guardianPhone null or missing.
func (m *Mongo) GetDayScholars(ctx context.Context) ([]types.Student, error) {
	return m.find(ctx, "GetDayScholars", bson.D{{Key: "guardianPhone", Value: nil}})
}

// UpdateStudentSkills replaces the skills and bumps updatedAt in a single
// findOneAndUpdate, returning the document as it is after the update.
func (m *Mongo) UpdateStudentSkills(ctx context.Context, rollNumber int64, skills []types.Skill, updatedAt time.Time) (types.Student, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "skills", Value: types.SkillsToStrings(skills)},
		{Key: "updatedAt", Value: updatedAt},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d document
	err := m.coll.FindOneAndUpdate(ctx, byRollNumber(rollNumber), update, opts).Decode(&d)
	if err != nil {
		return types.Student{}, notFound("UpdateStudentSkills", err)
	}
	return d.student(), nil
}

// DeleteStudentByRollNumber removes the student and returns what was
// removed.
func (m *Mongo) DeleteStudentByRollNumber(ctx context.Context, rollNumber int64) (types.Student, error) {
	var d document
	err := m.coll.FindOneAndDelete(ctx, byRollNumber(rollNumber)).Decode(&d)
	if err != nil {
		return types.Student{}, notFound("DeleteStudentByRollNumber", err)
	}
	return d.student(), nil
}

// Ping asks the primary for a round trip. It fails after the server
// selection timeout when no server is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client, waiting up to five seconds for in-flight
// operations.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectWait)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) find(ctx context.Context, op string, filter bson.D) ([]types.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rollNumber", Value: 1}})

	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	students := make([]types.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, d.student())
	}
	return students, nil
}

func byRollNumber(rollNumber int64) bson.D {
	return bson.D{{Key: "rollNumber", Value: rollNumber}}
}

func notFound(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
