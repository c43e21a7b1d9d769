package mongo

import (
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// changeEvent is the subset of a change stream event the watcher needs.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *struct {
		ExerciseID *string `bson:"exerciseId"`
	} `bson:"fullDocument"`
}

// WatchChanges tails the database change stream and forwards exercise and
// clip writes made by any process to listener. It blocks until ctx is done
// or the stream fails. Change streams need a replica set; on a standalone
// server the error is returned immediately and callers rely on cache TTLs.
func WatchChanges(ctx context.Context, db *mongo.Database, listener repository.ChangeListener, log *logger.Logger) error {
	if listener == nil {
		return errors.New("change listener is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "MongoChangeWatcher")

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"ns.coll": bson.M{"$in": bson.A{exerciseCollectionName, clipCollectionName}},
		}}},
	}
	streamOptions := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := db.Watch(ctx, pipeline, streamOptions)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.Background())

	log.Info("watching library changes")
	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			log.Warn("undecodable change event", "error", err)
			continue
		}
		dispatchChange(ev, listener)
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}

func dispatchChange(ev changeEvent, listener repository.ChangeListener) {
	id := documentKeyString(ev.DocumentKey.ID)
	switch ev.NS.Coll {
	case exerciseCollectionName:
		listener.OnExerciseChanged(id)
	case clipCollectionName:
		exerciseID := ""
		if ev.FullDocument != nil && ev.FullDocument.ExerciseID != nil {
			exerciseID = *ev.FullDocument.ExerciseID
		}
		listener.OnClipChanged(id, exerciseID)
	}
}

func documentKeyString(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
