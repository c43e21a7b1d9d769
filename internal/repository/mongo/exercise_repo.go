package mongo

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// exerciseDocument is the stored shape of an exercise. The slug is the primary key.
type exerciseDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	MuscleGroup string    `bson:"muscleGroup,omitempty"`
	Equipment   string    `bson:"equipment,omitempty"`
	Difficulty  string    `bson:"difficulty,omitempty"` // "beginner", "intermediate", "advanced"
	IsCompound  bool      `bson:"isCompound"`
	IsCardio    bool      `bson:"isCardio"`
	IsActive    bool      `bson:"isActive"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ListActiveExercises returns active exercises sorted by slug, which fixes
// the catalog iteration order used for similarity tie-breaks.
func (r *mongoClipRepository) ListActiveExercises(ctx context.Context) ([]domain.Exercise, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.exercises.Find(ctx, bson.M{"isActive": true}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []exerciseDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	exercises := make([]domain.Exercise, 0, len(docs))
	for _, doc := range docs {
		exercises = append(exercises, doc.toDomain())
	}
	return exercises, nil
}

// UpsertExercise inserts or replaces an exercise keyed by its slug.
func (r *mongoClipRepository) UpsertExercise(ctx context.Context, exercise *domain.Exercise) error {
	if exercise == nil || strings.TrimSpace(exercise.ID) == "" {
		return fmt.Errorf("%w: exercise slug is required", repository.ErrInvalid)
	}
	exercise.UpdatedAt = time.Now().UTC()
	doc := exerciseToDocument(exercise)

	result, err := r.exercises.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return repository.ErrUpdateFailed
	}

	if r.listener != nil {
		r.listener.OnExerciseChanged(exercise.ID)
	}
	return nil
}

func (d exerciseDocument) toDomain() domain.Exercise {
	return domain.Exercise{
		ID:          d.ID,
		Name:        d.Name,
		MuscleGroup: strings.ToLower(d.MuscleGroup),
		Equipment:   strings.ToLower(d.Equipment),
		Difficulty:  domain.ParseDifficulty(strings.ToLower(d.Difficulty)),
		IsCompound:  d.IsCompound,
		IsCardio:    d.IsCardio,
		IsActive:    d.IsActive,
		UpdatedAt:   d.UpdatedAt,
	}
}

func exerciseToDocument(e *domain.Exercise) exerciseDocument {
	return exerciseDocument{
		ID:          strings.TrimSpace(e.ID),
		Name:        e.Name,
		MuscleGroup: e.MuscleGroup,
		Equipment:   e.Equipment,
		Difficulty:  string(e.Difficulty),
		IsCompound:  e.IsCompound,
		IsCardio:    e.IsCardio,
		IsActive:    e.IsActive,
		UpdatedAt:   e.UpdatedAt,
	}
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
		{
			// similarity candidates are grouped by muscle group first
			Keys:    bson.D{{Key: "muscleGroup", Value: 1}, {Key: "equipment", Value: 1}},
			Options: options.Index().SetName("exercise_similarity"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
