package view

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

func mapNewestFirst(items []model.Item) []ItemView {
	views := make([]ItemView, len(items))
	for i, it := range items {
		views[i] = MapItem(it, "", "")
	}
	SortNewestFirst(views)
	return views
}

func runFallback(refreshErr error, cached []model.Item, cacheErr error, fresh []model.Item) []State[[]ItemView] {
	var got []State[[]ItemView]
	RefreshThenFallback(context.Background(),
		func(context.Context) ([]model.Item, error) { return fresh, refreshErr },
		func(context.Context) ([]model.Item, error) { return cached, cacheErr },
		mapNewestFirst,
		func(s State[[]ItemView]) { got = append(got, s) },
	)
	return got
}

func TestRefreshThenFallback_RemoteSuccess(t *testing.T) {
	got := runFallback(nil, []model.Item{item("stale", 1)}, nil, []model.Item{item("fresh", 2)})

	if len(got) != 2 {
		t.Fatalf("got %d states, want 2: %v", len(got), got)
	}
	if got[0].Phase != PhaseLoading {
		t.Errorf("first = %v, want Loading", got[0])
	}
	if got[1].Phase != PhaseSuccess || !slices.Equal(viewIDs(got[1].Data), []string{"fresh"}) {
		t.Errorf("second = %v, want Success([fresh])", got[1])
	}
}

func TestRefreshThenFallback_CachedRowsOnFailure(t *testing.T) {
	a := item("A", 100)
	b := item("B", 200)

	got := runFallback(errOffline, []model.Item{a, b}, nil, nil)

	if len(got) != 2 {
		t.Fatalf("got %d states, want 2: %v", len(got), got)
	}
	if got[1].Phase != PhaseSuccess {
		t.Fatalf("terminal = %v, want Success", got[1])
	}
	if ids := viewIDs(got[1].Data); !slices.Equal(ids, []string{"B", "A"}) {
		t.Errorf("ids = %v, want [B A]", ids)
	}
}

func TestRefreshThenFallback_EmptyCacheReportsRefreshError(t *testing.T) {
	got := runFallback(errOffline, nil, nil, nil)

	if len(got) != 2 {
		t.Fatalf("got %d states, want 2: %v", len(got), got)
	}
	if got[1].Phase != PhaseError {
		t.Fatalf("terminal = %v, want Error", got[1])
	}
	if got[1].Message != errOffline.Error() {
		t.Errorf("message = %q, want %q", got[1].Message, errOffline.Error())
	}
}

func TestRefreshThenFallback_CacheReadFailureCountsAsEmpty(t *testing.T) {
	got := runFallback(errOffline, nil, errors.New("disk I/O error"), nil)

	if got[len(got)-1].Phase != PhaseError || got[len(got)-1].Message != errOffline.Error() {
		t.Errorf("terminal = %v, want Error(%s)", got[len(got)-1], errOffline.Error())
	}
}

func TestRefreshThenFallback_SupersededEmitsOnlyLoading(t *testing.T) {
	cacheRead := false
	var got []State[[]ItemView]
	RefreshThenFallback(context.Background(),
		func(context.Context) ([]model.Item, error) {
			return nil, model.SupersededError("refresh items", context.Canceled)
		},
		func(context.Context) ([]model.Item, error) {
			cacheRead = true
			return []model.Item{item("A", 1)}, nil
		},
		mapNewestFirst,
		func(s State[[]ItemView]) { got = append(got, s) },
	)

	if len(got) != 1 || got[0].Phase != PhaseLoading {
		t.Errorf("states = %v, want only Loading", got)
	}
	if cacheRead {
		t.Error("cache read after a superseded refresh")
	}
}

func TestRefreshThenFallback_ApplicationErrorFallsBack(t *testing.T) {
	got := runFallback(model.ApplicationError("load items", "Service unavailable"), []model.Item{item("A", 1)}, nil, nil)

	if got[1].Phase != PhaseSuccess || len(got[1].Data) != 1 {
		t.Errorf("terminal = %v, want Success with the cached row", got[1])
	}
}

func TestSortNewestFirst_TiesByID(t *testing.T) {
	ts := time.UnixMilli(7)
	views := []ItemView{{ID: "b", CreatedAt: ts}, {ID: "c", CreatedAt: ts.Add(time.Second)}, {ID: "a", CreatedAt: ts}}
	SortNewestFirst(views)
	if ids := viewIDs(views); !slices.Equal(ids, []string{"c", "a", "b"}) {
		t.Errorf("ids = %v, want [c a b]", ids)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State[int]
		want  string
	}{
		{Loading[int](), "Loading"},
		{Success(3), "Success(3)"},
		{Failure[int]("boom"), "Error(boom)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if Loading[int]().Terminal() {
		t.Error("Loading should not be terminal")
	}
	if !Failure[int]("x").Terminal() {
		t.Error("Error should be terminal")
	}
}
