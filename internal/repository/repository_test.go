package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Path: filepath.Join(t.TempDir(), "uav.db"),
	}, logging.Noop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFlightPlanRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewFlightPlanRepository(openTestDB(t).DB)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	corners, _ := spatial.ExpandRectangle(spatial.NewWaypoint(10, 20), spatial.NewWaypoint(5, 25))
	plan := &models.FlightPlan{
		Name:        "Survey A",
		Description: "north field",
		ShapeType:   spatial.KindRectangle,
		Waypoints:   corners,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := repo.Create(ctx, plan)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Name != plan.Name || got.ShapeType != spatial.KindRectangle || !got.CreatedAt.Equal(now) {
		t.Errorf("unexpected plan %+v", got)
	}
	if len(got.Waypoints) != 4 || got.Waypoints[2] != spatial.NewWaypoint(5, 25) {
		t.Errorf("waypoints did not round trip: %v", got.Waypoints)
	}

	plan.ID = id
	plan.Name = "Survey B"
	plan.UpdatedAt = now.Add(time.Hour)
	ok, err := repo.Update(ctx, plan)
	if err != nil || !ok {
		t.Fatalf("Update: %v %v", ok, err)
	}
	got, _ = repo.GetByID(ctx, id)
	if got.Name != "Survey B" || !got.UpdatedAt.Equal(now.Add(time.Hour)) || !got.CreatedAt.Equal(now) {
		t.Errorf("update not applied: %+v", got)
	}

	plan.ID = id + 100
	if ok, err := repo.Update(ctx, plan); err != nil || ok {
		t.Errorf("Update of missing row: %v %v", ok, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %v", list, err)
	}

	if ok, err := repo.Delete(ctx, id); err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
	if ok, _ := repo.Delete(ctx, id); ok {
		t.Error("second delete reported a row")
	}
	if got, err := repo.GetByID(ctx, id); err != nil || got != nil {
		t.Errorf("deleted plan still readable: %v %v", got, err)
	}
}

func TestFlightPlanListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewFlightPlanRepository(openTestDB(t).DB)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "new"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Create(ctx, &models.FlightPlan{
			Name:      name,
			ShapeType: spatial.KindPolyline,
			Waypoints: []spatial.Waypoint{spatial.NewWaypoint(0, 0), spatial.NewWaypoint(1, 1)},
			CreatedAt: ts,
			UpdatedAt: ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "new" || list[1].Name != "old" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestTrajectoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTrajectoryRepository(openTestDB(t).DB)
	now := time.Now().UTC()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.Create(ctx, &models.Trajectory{
			Name:      "run",
			Points:    []spatial.Waypoint{spatial.NewWaypoint(0, 0), spatial.NewWaypoint(0, 1)},
			Duration:  12,
			Distance:  111195,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}

	got, err := repo.GetByID(ctx, ids[0])
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Duration != 12 || got.Distance != 111195 || len(got.Points) != 2 {
		t.Errorf("unexpected trajectory %+v", got)
	}

	if ok, err := repo.Delete(ctx, ids[0]); err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}

	deleted, err := repo.BulkDelete(ctx, []int64{ids[1], ids[2], ids[0]})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d rows, want 2", deleted)
	}

	list, _ := repo.List(ctx)
	if len(list) != 0 {
		t.Errorf("%d trajectories left", len(list))
	}
}

func TestTrajectoryRepositoryRejectsNegativeDuration(t *testing.T) {
	repo := NewTrajectoryRepository(openTestDB(t).DB)
	_, err := repo.Create(context.Background(), &models.Trajectory{
		Name:      "bad",
		Points:    []spatial.Waypoint{spatial.NewWaypoint(0, 0), spatial.NewWaypoint(0, 1)},
		Duration:  -1,
		CreatedAt: time.Now(),
	})
	if err == nil {
		t.Error("negative duration stored")
	}
}

func TestUAVPositionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUAVPositionRepository(openTestDB(t).DB)

	latest, err := repo.Latest(ctx)
	if err != nil || latest != nil {
		t.Fatalf("Latest on empty log: %v %v", latest, err)
	}

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &models.UAVPosition{
			Latitude:  -7.7956 + float64(i)*0.001,
			Longitude: 110.3695,
			Heading:   float64(i),
			Timestamp: ts,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err = repo.Latest(ctx)
	if err != nil || latest == nil {
		t.Fatalf("Latest: %v %v", latest, err)
	}
	if latest.Heading != 4 {
		t.Errorf("latest heading %v, want 4", latest.Heading)
	}

	history, err := repo.History(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0].Heading != 4 || history[2].Heading != 2 {
		t.Errorf("unexpected history %+v", history)
	}
}
