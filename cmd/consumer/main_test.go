package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/carpool/internal/models"
)

type fakeIndexer struct {
	failures int
	calls    int
}

func (f *fakeIndexer) Index(_ context.Context, _ string, _ models.Coord) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return nil
}

func TestIndexWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	f := &fakeIndexer{failures: 2}
	ev := models.RideEvent{RideID: "r1", Pickup: models.Coord{Lng: 77.61, Lat: 12.93}}

	if err := indexWithRetry(context.Background(), f, ev, 3, time.Millisecond); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
}

func TestIndexWithRetryGivesUp(t *testing.T) {
	f := &fakeIndexer{failures: 10}
	ev := models.RideEvent{RideID: "r1", Pickup: models.Coord{Lng: 77.61, Lat: 12.93}}

	err := indexWithRetry(context.Background(), f, ev, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error when attempts exhausted")
	}
	if f.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", f.calls)
	}
}

func TestIndexWithRetryNoRetryOnSuccess(t *testing.T) {
	f := &fakeIndexer{}
	ev := models.RideEvent{RideID: "r1", Pickup: models.Coord{Lng: 77.61, Lat: 12.93}}

	if err := indexWithRetry(context.Background(), f, ev, 3, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Fatalf("expected single attempt, got %d", f.calls)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:9092 , ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected result: %v", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Fatalf("empty input: %v", got)
	}
}
