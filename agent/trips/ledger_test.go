package trips

import (
	"context"
	"strings"
	"testing"
	"time"

	"viajero/agent/geo"
	statex "viajero/agent/state"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := statex.NewFileStore(statex.FileStoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	l := NewLedger(store, geo.NewResolver())
	l.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return l
}

func TestCreateOrGetTripIsIdempotent(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	first, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}
	if first.TripID != "20260904_madrid" {
		t.Fatalf("TripID = %q", first.TripID)
	}
	if first.IATA != "MAD" {
		t.Fatalf("IATA = %q, want MAD", first.IATA)
	}

	second, err := l.CreateOrGetTrip(ctx, "ana", "Madrid", "2026-09-11", "2026-09-14")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() second error = %v", err)
	}
	if second.TripID != first.TripID {
		t.Fatalf("TripID = %q, want same trip %q", second.TripID, first.TripID)
	}
	if second.StartDate != "2026-09-04" {
		t.Fatalf("StartDate = %q, existing dates must not be overwritten", second.StartDate)
	}

	trips, err := l.ListActive(ctx, "ana")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("ListActive() = %d trips, want 1", len(trips))
	}
}

func TestCreateOrGetTripBackfillsMissingDates(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "roma", "", ""); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}
	got, err := l.CreateOrGetTrip(ctx, "ana", "roma", "2026-10-02", "2026-10-05")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}
	if got.StartDate != "2026-10-02" || got.EndDate != "2026-10-05" {
		t.Fatalf("dates = %s..%s, want back-filled", got.StartDate, got.EndDate)
	}
}

func TestAddSegmentDedupe(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	trip, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	seg := Segment{Type: SegmentFlight, Date: "2026-09-04"}
	if _, err := l.AddSegment(ctx, "ana", trip.TripID, seg, "flight"); err != nil {
		t.Fatalf("AddSegment() error = %v", err)
	}
	got, err := l.AddSegment(ctx, "ana", trip.TripID, seg, "flight")
	if err != nil {
		t.Fatalf("AddSegment() duplicate error = %v", err)
	}
	if len(got.Segments) != 1 {
		t.Fatalf("Segments = %d, want duplicate dropped", len(got.Segments))
	}

	stay := Segment{Type: SegmentHotel, Checkin: "2026-09-04", Checkout: "2026-09-07"}
	if _, err := l.AddSegment(ctx, "ana", trip.TripID, stay, "hotel"); err != nil {
		t.Fatalf("AddSegment() hotel error = %v", err)
	}
	got, err = l.AddSegment(ctx, "ana", trip.TripID, stay, "hotel")
	if err != nil {
		t.Fatalf("AddSegment() duplicate stay error = %v", err)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("Segments = %d, want 2", len(got.Segments))
	}
}

func TestAddSegmentRecomputesRange(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	trip, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-05", "2026-09-05")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	got, err := l.AddSegment(ctx, "ana", trip.TripID,
		Segment{Type: SegmentHotel, Checkin: "2026-09-04", Checkout: "2026-09-08"}, "hotel")
	if err != nil {
		t.Fatalf("AddSegment() error = %v", err)
	}
	if got.StartDate != "2026-09-04" || got.EndDate != "2026-09-08" {
		t.Fatalf("range = %s..%s, want recomputed from segments", got.StartDate, got.EndDate)
	}
}

func TestShiftMovesBothDates(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Shift(ctx, "ana", "madrid", 7)
	if err != nil {
		t.Fatalf("Shift() error = %v", err)
	}
	if res.Trip == nil || res.Trip.StartDate != "2026-09-11" || res.Trip.EndDate != "2026-09-14" {
		t.Fatalf("Shift() trip = %+v", res.Trip)
	}
	if !strings.Contains(res.Summary, "✅") {
		t.Fatalf("Summary = %q", res.Summary)
	}
}

func TestExtendAndShorten(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Extend(ctx, "ana", "madrid", 2)
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if res.Trip.EndDate != "2026-09-09" {
		t.Fatalf("EndDate = %q, want 2026-09-09", res.Trip.EndDate)
	}

	// Negative input means the same as positive for shorten.
	res, err = l.Shorten(ctx, "ana", "madrid", -3)
	if err != nil {
		t.Fatalf("Shorten() error = %v", err)
	}
	if res.Trip.EndDate != "2026-09-06" {
		t.Fatalf("EndDate = %q, want 2026-09-06", res.Trip.EndDate)
	}
}

func TestShortenRefusesPastStart(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-06"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Shorten(ctx, "ana", "madrid", 10)
	if err != nil {
		t.Fatalf("Shorten() error = %v, refusal must not be an error", err)
	}
	if !strings.Contains(res.Summary, "No se puede acortar") {
		t.Fatalf("Summary = %q", res.Summary)
	}

	trips, err := l.ListActive(ctx, "ana")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if trips[0].EndDate != "2026-09-06" {
		t.Fatalf("EndDate = %q, refused change must not persist", trips[0].EndDate)
	}
}

func TestMemoryOpInfersSingleActiveTrip(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Extend(ctx, "ana", "", 1)
	if err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if res.Trip == nil || res.Trip.City != "Madrid" {
		t.Fatalf("Extend() without city should target the only active trip, got %+v", res.Trip)
	}
}

func TestDeleteByCity(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}
	if _, err := l.CreateOrGetTrip(ctx, "ana", "roma", "2026-10-02", "2026-10-05"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Delete(ctx, "ana", "madrid")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(res.Summary, "🗑️") {
		t.Fatalf("Summary = %q", res.Summary)
	}

	trips, err := l.ListActive(ctx, "ana")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(trips) != 1 || trips[0].City != "Roma" {
		t.Fatalf("remaining trips = %+v", trips)
	}
}

func TestDeleteAllMarkers(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Delete(ctx, "ana", "*")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(res.Summary, "🧹") {
		t.Fatalf("Summary = %q", res.Summary)
	}

	res, err = l.Delete(ctx, "ana", "todos")
	if err != nil {
		t.Fatalf("Delete() second error = %v", err)
	}
	if res.Summary != "No tienes viajes registrados." {
		t.Fatalf("Summary = %q", res.Summary)
	}
}

func TestDeleteNoMatch(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07"); err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}

	res, err := l.Delete(ctx, "ana", "berlín")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(res.Summary, "No encontré") {
		t.Fatalf("Summary = %q", res.Summary)
	}
}

func TestListSummaries(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	res, err := l.List(ctx, "ana")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Summary != "No tienes viajes registrados todavía." {
		t.Fatalf("Summary = %q", res.Summary)
	}

	trip, err := l.CreateOrGetTrip(ctx, "ana", "madrid", "2026-09-04", "2026-09-07")
	if err != nil {
		t.Fatalf("CreateOrGetTrip() error = %v", err)
	}
	if _, err := l.SetBudget(ctx, "ana", trip.TripID, 850); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}

	res, err = l.List(ctx, "ana")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !strings.Contains(res.Summary, "Madrid") || !strings.Contains(res.Summary, "~850€") {
		t.Fatalf("Summary = %q", res.Summary)
	}
}
