package service

import (
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"testing"
	"time"
)

var defaultCoverageKinds = []domain.VideoKind{domain.KindInstruction, domain.KindTechnique, domain.KindMistake}

func coverageFixture() *fakeRepo {
	repo := &fakeRepo{exercises: []domain.Exercise{
		exercise("push-ups", "chest", "bodyweight", domain.DifficultyBeginner, true, false),
		exercise("squats", "legs", "bodyweight", domain.DifficultyBeginner, true, false),
		exercise("lunges", "legs", "bodyweight", domain.DifficultyBeginner, true, false),
		exercise("plank", "core", "bodyweight", domain.DifficultyBeginner, false, false),
	}}
	repo.clips = append(repo.clips, fullCoverage("push-ups", "")...)
	repo.clips = append(repo.clips, fullCoverage("squats", domain.ArchetypeMentor)...)
	// lunges lacks a mistake clip.
	repo.clips = append(repo.clips,
		clip("lunges-instruction", "lunges", domain.KindInstruction, "", 1),
		clip("lunges-technique", "lunges", domain.KindTechnique, "", 1),
	)
	// plank's mistake clip has no stored file.
	plankMistake := clip("plank-mistake", "plank", domain.KindMistake, "", 1)
	plankMistake.Storage = domain.StorageRef{Provider: domain.ProviderR2}
	repo.clips = append(repo.clips,
		clip("plank-instruction", "plank", domain.KindInstruction, "", 1),
		clip("plank-technique", "plank", domain.KindTechnique, "", 1),
		plankMistake,
	)
	return repo
}

func TestAllowedSlugs(t *testing.T) {
	s := NewCoverageService(coverageFixture(), defaultCoverageKinds, time.Minute, nil)
	ctx := context.Background()

	tests := []struct {
		archetype domain.Archetype
		want      []string
		notWant   []string
	}{
		{"", []string{"push-ups", "squats"}, []string{"lunges", "plank"}},
		{domain.ArchetypeMentor, []string{"push-ups", "squats"}, []string{"lunges", "plank"}},
		{domain.ArchetypePeer, []string{"push-ups"}, []string{"squats", "lunges", "plank"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.archetype), func(t *testing.T) {
			allowed := s.AllowedSlugs(ctx, tt.archetype)
			for _, id := range tt.want {
				if _, ok := allowed[id]; !ok {
					t.Errorf("%s should be allowed", id)
				}
			}
			for _, id := range tt.notWant {
				if _, ok := allowed[id]; ok {
					t.Errorf("%s should not be allowed", id)
				}
			}
		})
	}
}

func TestAllowedSlugsChangeVisibleOnlyAfterInvalidate(t *testing.T) {
	repo := coverageFixture()
	s := NewCoverageService(repo, defaultCoverageKinds, time.Hour, nil)
	ctx := context.Background()

	if _, ok := s.AllowedSlugs(ctx, "")["lunges"]; ok {
		t.Fatal("lunges allowed before its mistake clip exists")
	}

	repo.addClip(clip("lunges-mistake", "lunges", domain.KindMistake, "", 1))
	if _, ok := s.AllowedSlugs(ctx, "")["lunges"]; ok {
		t.Fatal("cached set changed before invalidation")
	}

	s.Invalidate()
	if _, ok := s.AllowedSlugs(ctx, "")["lunges"]; !ok {
		t.Error("lunges not allowed after invalidation")
	}
}

func TestAllowedSlugsRepositoryErrorIsNotCached(t *testing.T) {
	repo := coverageFixture()
	repo.clipErr = errRepoDown
	s := NewCoverageService(repo, defaultCoverageKinds, time.Hour, nil)
	ctx := context.Background()

	if got := s.AllowedSlugs(ctx, ""); len(got) != 0 {
		t.Fatalf("expected empty set on error, got %v", got)
	}

	repo.mu.Lock()
	repo.clipErr = nil
	repo.mu.Unlock()

	if _, ok := s.AllowedSlugs(ctx, "")["push-ups"]; !ok {
		t.Error("error result was cached")
	}
}

func TestAllowedSlugsExpiresAfterTTL(t *testing.T) {
	repo := coverageFixture()
	s := NewCoverageService(repo, defaultCoverageKinds, time.Minute, nil)
	now := baseTime
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.AllowedSlugs(ctx, "")
	_, before := repo.calls()
	s.AllowedSlugs(ctx, "")
	if _, after := repo.calls(); after != before {
		t.Fatal("cached entry was recomputed")
	}

	now = now.Add(2 * time.Minute)
	s.AllowedSlugs(ctx, "")
	if _, after := repo.calls(); after == before {
		t.Error("expired entry was not recomputed")
	}
}

func TestCoverageReport(t *testing.T) {
	s := NewCoverageService(coverageFixture(), defaultCoverageKinds, time.Minute, nil)
	report, err := s.Report(context.Background(), "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Total != 4 || report.Complete != 2 || report.Partial != 2 || report.None != 0 {
		t.Fatalf("unexpected totals %+v", report)
	}

	rows := map[string]domain.ExerciseCoverage{}
	for _, row := range report.Exercises {
		rows[row.ExerciseID] = row
	}
	lunges := rows["lunges"]
	if lunges.Status != domain.CoveragePartial || len(lunges.Missing) != 1 || lunges.Missing[0] != domain.KindMistake {
		t.Errorf("lunges row %+v", lunges)
	}
	if rows["plank"].ClipCount != 2 {
		t.Errorf("plank clip count = %d, the unstored clip must not count", rows["plank"].ClipCount)
	}
	if report.Exercises[0].ExerciseID != "lunges" {
		t.Errorf("rows not sorted: first is %s", report.Exercises[0].ExerciseID)
	}

	if _, err := NewCoverageService(&fakeRepo{exerciseErr: errRepoDown}, defaultCoverageKinds, time.Minute, nil).Report(context.Background(), ""); err == nil {
		t.Error("report must surface repository errors")
	}
}
