package mongo

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	exerciseCollectionName = "exercises"
	clipCollectionName     = "video_clips"
)

// clipDocument is the stored shape of a clip. Nullable fields are pointers so
// global clips (no exercise) and generic clips (no archetype) round-trip as null.
type clipDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ExerciseID      *string            `bson:"exerciseId"`
	Kind            string             `bson:"kind"`
	Archetype       *string            `bson:"archetype"`
	Variant         string             `bson:"variant,omitempty"`
	IsActive        bool               `bson:"isActive"`
	Provider        string             `bson:"provider"` // "r2", "stream" or "external"
	StorageKey      string             `bson:"storageKey,omitempty"`
	URL             string             `bson:"url,omitempty"`
	DurationSeconds int                `bson:"durationSeconds,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// mongoClipRepository implements repository.ClipStore
type mongoClipRepository struct {
	exercises *mongo.Collection
	clips     *mongo.Collection
	listener  repository.ChangeListener
	log       *logger.Logger
}

// NewMongoClipRepository creates the clip library backed by MongoDB.
// listener may be nil; when set it is notified after every successful write.
func NewMongoClipRepository(db *mongo.Database, listener repository.ChangeListener, log *logger.Logger) repository.ClipStore {
	if log == nil {
		log = logger.Nop()
	}
	return &mongoClipRepository{
		exercises: db.Collection(exerciseCollectionName),
		clips:     db.Collection(clipCollectionName),
		listener:  listener,
		log:       log.With("component", "MongoClipRepository"),
	}
}

// clipFilterToBSON translates a repository filter into a query document.
func clipFilterToBSON(f repository.ClipFilter) bson.M {
	filter := bson.M{"isActive": true}
	switch {
	case f.GlobalOnly:
		// matches both explicit null and a missing field
		filter["exerciseId"] = nil
	case f.ExerciseID != "":
		filter["exerciseId"] = f.ExerciseID
	}
	if f.Kind != "" {
		filter["kind"] = string(f.Kind)
	}
	if f.Archetype != "" {
		filter["archetype"] = string(f.Archetype)
	}
	return filter
}

// ListActiveClips returns active clips, newest first.
func (r *mongoClipRepository) ListActiveClips(ctx context.Context, f repository.ClipFilter) ([]domain.VideoClip, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.clips.Find(ctx, clipFilterToBSON(f), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []clipDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	clips := make([]domain.VideoClip, 0, len(docs))
	for _, doc := range docs {
		clip, err := doc.toDomain()
		if err != nil {
			r.log.Warn("skipping unreadable clip", "clip_id", doc.ID.Hex(), "error", err)
			continue
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// UpsertClip inserts or replaces a clip and returns its ID.
func (r *mongoClipRepository) UpsertClip(ctx context.Context, clip *domain.VideoClip) (string, error) {
	doc, err := clipToDocument(clip)
	if err != nil {
		return "", err
	}
	if doc.ID == primitive.NilObjectID {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = r.clips.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", err
	}

	clip.ID = doc.ID.Hex()
	clip.CreatedAt = doc.CreatedAt
	if r.listener != nil {
		r.listener.OnClipChanged(clip.ID, clip.ExerciseID)
	}
	return clip.ID, nil
}

// DeactivateClip flags a clip inactive. Clips are never hard-deleted so
// coverage history stays auditable.
func (r *mongoClipRepository) DeactivateClip(ctx context.Context, clipID string) error {
	id, err := primitive.ObjectIDFromHex(clipID)
	if err != nil {
		return fmt.Errorf("%w: clip id %q", repository.ErrInvalid, clipID)
	}

	var before clipDocument
	err = r.clips.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}}).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return err
	}

	if r.listener != nil {
		exerciseID := ""
		if before.ExerciseID != nil {
			exerciseID = *before.ExerciseID
		}
		r.listener.OnClipChanged(clipID, exerciseID)
	}
	return nil
}

func (d clipDocument) toDomain() (domain.VideoClip, error) {
	kind, err := domain.ParseVideoKind(d.Kind)
	if err != nil {
		return domain.VideoClip{}, err
	}
	clip := domain.VideoClip{
		ID:              d.ID.Hex(),
		Kind:            kind,
		Variant:         d.Variant,
		IsActive:        d.IsActive,
		DurationSeconds: d.DurationSeconds,
		CreatedAt:       d.CreatedAt,
	}
	if d.ExerciseID != nil {
		clip.ExerciseID = *d.ExerciseID
	}
	if d.Archetype != nil && *d.Archetype != "" {
		a, err := domain.ParseArchetype(*d.Archetype)
		if err != nil {
			return domain.VideoClip{}, err
		}
		clip.Archetype = a
	}
	// An unknown provider leaves Storage.Provider empty, which makes the
	// reference empty and the clip ineligible for coverage.
	if provider, ok := domain.ParseStorageProvider(d.Provider); ok {
		clip.Storage.Provider = provider
	}
	clip.Storage.Key = d.StorageKey
	clip.Storage.URL = d.URL
	return clip, nil
}

func clipToDocument(clip *domain.VideoClip) (clipDocument, error) {
	if clip == nil || clip.Kind == "" {
		return clipDocument{}, fmt.Errorf("%w: clip kind is required", repository.ErrInvalid)
	}
	doc := clipDocument{
		Kind:            string(clip.Kind),
		Variant:         clip.Variant,
		IsActive:        clip.IsActive,
		Provider:        string(clip.Storage.Provider),
		StorageKey:      clip.Storage.Key,
		URL:             clip.Storage.URL,
		DurationSeconds: clip.DurationSeconds,
		CreatedAt:       clip.CreatedAt,
	}
	if clip.ID != "" {
		id, err := primitive.ObjectIDFromHex(clip.ID)
		if err != nil {
			return clipDocument{}, fmt.Errorf("%w: clip id %q", repository.ErrInvalid, clip.ID)
		}
		doc.ID = id
	}
	if clip.ExerciseID != "" {
		exerciseID := clip.ExerciseID
		doc.ExerciseID = &exerciseID
	}
	if clip.Archetype != "" {
		archetype := string(clip.Archetype)
		doc.Archetype = &archetype
	}
	return doc, nil
}

// EnsureClipIndexes creates the indexes the resolver and coverage queries use.
func EnsureClipIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// resolver lookups: (exercise, kind) then archetype partitioning
			Keys: bson.D{{Key: "exerciseId", Value: 1}, {Key: "kind", Value: 1}, {Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			// coverage scans scoped to one archetype
			Keys: bson.D{{Key: "archetype", Value: 1}, {Key: "isActive", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
