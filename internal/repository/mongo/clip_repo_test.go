package mongo

import (
	"alcyxob/workout-playlist/internal/domain"
	"alcyxob/workout-playlist/internal/repository"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClipFilterToBSON(t *testing.T) {
	tests := []struct {
		name   string
		filter repository.ClipFilter
		want   map[string]interface{}
	}{
		{
			name:   "active only",
			filter: repository.ClipFilter{},
			want:   map[string]interface{}{"isActive": true},
		},
		{
			name:   "exercise and kind",
			filter: repository.ClipFilter{ExerciseID: "push-ups", Kind: domain.KindInstruction},
			want:   map[string]interface{}{"isActive": true, "exerciseId": "push-ups", "kind": "instruction"},
		},
		{
			name:   "global weekly for archetype",
			filter: repository.ClipFilter{GlobalOnly: true, Kind: domain.KindWeekly, Archetype: domain.ArchetypePeer},
			want:   map[string]interface{}{"isActive": true, "exerciseId": nil, "kind": "weekly", "archetype": "peer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clipFilterToBSON(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("key %s: got %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestClipDocumentRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clip := &domain.VideoClip{
		ID:              primitive.NewObjectID().Hex(),
		ExerciseID:      "squats",
		Kind:            domain.KindTechnique,
		Archetype:       domain.ArchetypeMentor,
		Variant:         "model-a",
		IsActive:        true,
		Storage:         domain.StorageRef{Provider: domain.ProviderStream, Key: "uid-123"},
		DurationSeconds: 42,
		CreatedAt:       created,
	}

	doc, err := clipToDocument(clip)
	if err != nil {
		t.Fatalf("clipToDocument: %v", err)
	}
	back, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if back != *clip {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, *clip)
	}
}

func TestClipDocumentGenericAndGlobal(t *testing.T) {
	doc := clipDocument{
		ID:       primitive.NewObjectID(),
		Kind:     "weekly",
		IsActive: true,
		Provider: "",
		URL:      "",
	}
	clip, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if clip.ExerciseID != "" || !clip.IsGeneric() {
		t.Errorf("expected global generic clip, got %+v", clip)
	}
	if clip.Storage.Provider != domain.ProviderR2 {
		t.Errorf("empty provider should default to r2, got %q", clip.Storage.Provider)
	}
	if !clip.Storage.IsEmpty() {
		t.Error("clip without key should have an empty storage ref")
	}
}

func TestClipDocumentRejectsUnknownKind(t *testing.T) {
	if _, err := (clipDocument{Kind: "bloopers"}).toDomain(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	unknownProvider := clipDocument{Kind: "instruction", Provider: "vimeo", StorageKey: "k"}
	clip, err := unknownProvider.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if !clip.Storage.IsEmpty() {
		t.Error("unknown provider must produce an unusable storage ref")
	}
}

func TestClipToDocumentValidation(t *testing.T) {
	if _, err := clipToDocument(&domain.VideoClip{}); !errors.Is(err, repository.ErrInvalid) {
		t.Errorf("missing kind: got %v", err)
	}
	if _, err := clipToDocument(&domain.VideoClip{ID: "not-hex", Kind: domain.KindMistake}); !errors.Is(err, repository.ErrInvalid) {
		t.Errorf("bad id: got %v", err)
	}
}

type recordingListener struct {
	exercises []string
	clips     [][2]string
}

func (l *recordingListener) OnExerciseChanged(id string) { l.exercises = append(l.exercises, id) }
func (l *recordingListener) OnClipChanged(clipID, exerciseID string) {
	l.clips = append(l.clips, [2]string{clipID, exerciseID})
}

func TestDispatchChange(t *testing.T) {
	l := &recordingListener{}

	var exEvent changeEvent
	exEvent.NS.Coll = exerciseCollectionName
	exEvent.DocumentKey.ID = "burpees"
	dispatchChange(exEvent, l)

	oid := primitive.NewObjectID()
	exerciseID := "burpees"
	var clipEvent changeEvent
	clipEvent.NS.Coll = clipCollectionName
	clipEvent.DocumentKey.ID = oid
	clipEvent.FullDocument = &struct {
		ExerciseID *string `bson:"exerciseId"`
	}{ExerciseID: &exerciseID}
	dispatchChange(clipEvent, l)

	var deleted changeEvent
	deleted.NS.Coll = clipCollectionName
	deleted.DocumentKey.ID = oid
	dispatchChange(deleted, l)

	if len(l.exercises) != 1 || l.exercises[0] != "burpees" {
		t.Errorf("exercise notifications: %v", l.exercises)
	}
	if len(l.clips) != 2 {
		t.Fatalf("clip notifications: %v", l.clips)
	}
	if l.clips[0] != [2]string{oid.Hex(), "burpees"} {
		t.Errorf("clip update: %v", l.clips[0])
	}
	if l.clips[1] != [2]string{oid.Hex(), ""} {
		t.Errorf("clip delete: %v", l.clips[1])
	}
}
