package repository

import (
	"context"
	"errors"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository on the "profiles" collection.
// A unique index on "user" enforces one profile per user.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepo{col: col}, nil
}

func byUser(userID primitive.ObjectID) bson.M {
	return bson.M{"user": userID}
}

func (m *MongoRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*profile.Profile, error) {
	var p profile.Profile
	if err := m.col.FindOne(ctx, byUser(userID)).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*profile.Profile, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*profile.Profile{}
	for cur.Next(ctx) {
		var p profile.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

// Upsert mirrors findOneAndUpdate({user}, {$set}, {upsert, new, setDefaultsOnInsert}).
func (m *MongoRepo) Upsert(ctx context.Context, userID primitive.ObjectID, f profile.Fields) (*profile.Profile, error) {
	set := bson.M{
		"status":  f.Status,
		"skills":  f.Skills,
		"website": f.Website,
		"social":  f.Social,
	}
	optional := map[string]*string{
		"company":        f.Company,
		"location":       f.Location,
		"bio":            f.Bio,
		"githubusername": f.GitHubUsername,
	}
	for k, v := range optional {
		if v != nil {
			set[k] = *v
		}
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"experience": bson.A{},
			"education":  bson.A{},
			"date":       time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p profile.Profile
	if err := m.col.FindOneAndUpdate(ctx, byUser(userID), update, opts).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) Insert(ctx context.Context, p *profile.Profile) error {
	_, err := m.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	return err
}

func (m *MongoRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (*profile.Profile, error) {
	var p profile.Profile
	if err := m.col.FindOneAndDelete(ctx, byUser(userID)).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) modify(ctx context.Context, userID primitive.ObjectID, update bson.M) (*profile.Profile, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p profile.Profile
	if err := m.col.FindOneAndUpdate(ctx, byUser(userID), update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// prepend builds {$push: {field: {$each: [entry], $position: 0}}}.
func prepend(field string, entry interface{}) bson.M {
	return bson.M{"$push": bson.M{field: bson.M{"$each": bson.A{entry}, "$position": 0}}}
}

func pull(field string, entryID primitive.ObjectID) bson.M {
	return bson.M{"$pull": bson.M{field: bson.M{"_id": entryID}}}
}

func (m *MongoRepo) PrependExperience(ctx context.Context, userID primitive.ObjectID, e profile.Experience) (*profile.Profile, error) {
	return m.modify(ctx, userID, prepend("experience", e))
}

func (m *MongoRepo) RemoveExperience(ctx context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error) {
	return m.modify(ctx, userID, pull("experience", entryID))
}

func (m *MongoRepo) PrependEducation(ctx context.Context, userID primitive.ObjectID, e profile.Education) (*profile.Profile, error) {
	return m.modify(ctx, userID, prepend("education", e))
}

func (m *MongoRepo) RemoveEducation(ctx context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error) {
	return m.modify(ctx, userID, pull("education", entryID))
}
