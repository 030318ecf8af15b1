package repository

import (
	"sync"
	"testing"
	"time"

	"fieldtrack/internal/core/model"
)

func findAll(t *testing.T, repo TrackSegmentRepository, userID string) []*model.TrackSegment {
	t.Helper()
	segs, _, err := repo.FindByUserAndRange(userID,
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	return segs
}

func TestInMemoryTrackRepositoryIsolatesStoredSegments(t *testing.T) {
	repo := NewInMemoryTrackSegmentRepository()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	seg := model.NewTrackSegment("u1", start)
	seg.Append(model.TrackPoint{Latitude: 43.2389, Timestamp: start}, 0)
	if err := repo.Save(seg); err != nil {
		t.Fatal(err)
	}

	// The active segment keeps growing after Save; the stored snapshot
	// must not see it.
	seg.Append(model.TrackPoint{Latitude: 43.2391, Timestamp: start.Add(10 * time.Second)}, 25)

	stored := findAll(t, repo, "u1")
	if len(stored) != 1 {
		t.Fatalf("segments = %d, want 1", len(stored))
	}
	if stored[0].PointCount != 1 || len(stored[0].Points) != 1 {
		t.Errorf("stored snapshot has %d points, want the 1 present at Save", len(stored[0].Points))
	}

	// Mutating a returned segment must not reach the store either.
	stored[0].Points[0].Latitude = -1
	stored[0].Supersede()

	again := findAll(t, repo, "u1")
	if again[0].Points[0].Latitude != 43.2389 {
		t.Errorf("store latitude = %f after caller mutation, want 43.2389", again[0].Points[0].Latitude)
	}
	if !again[0].IsActive {
		t.Error("caller mutation flipped the stored segment inactive")
	}
}

func TestInMemoryTrackRepositoryConcurrentAppendAndRead(t *testing.T) {
	repo := NewInMemoryTrackSegmentRepository()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seg := model.NewTrackSegment("u1", start)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			seg.Append(model.TrackPoint{
				Latitude:  43.2389 + float64(i)*1e-5,
				Timestamp: start.Add(time.Duration(i) * time.Second),
			}, 1)
			if err := repo.Save(seg); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			segs, _, err := repo.FindByUserAndRange(seg.UserID,
				start.Add(-time.Hour), start.Add(time.Hour), 1, 10)
			if err != nil {
				t.Error(err)
				return
			}
			for _, s := range segs {
				// A snapshot is internally consistent even while the
				// writer keeps appending.
				if len(s.Points) != s.PointCount {
					t.Errorf("snapshot has %d points, PointCount %d", len(s.Points), s.PointCount)
					return
				}
			}
		}
	}()
	wg.Wait()
}
