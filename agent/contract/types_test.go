package contract

import "testing"

func TestParseIntent(t *testing.T) {
	t.Parallel()

	if got := ParseIntent("PLAN_TRIP"); got != IntentPlanTrip {
		t.Fatalf("ParseIntent() = %s", got)
	}
	if got := ParseIntent("BOOK_CRUISE"); got != IntentUnknown {
		t.Fatalf("ParseIntent() = %s, want UNKNOWN", got)
	}
	if got := ParseIntent(""); got != IntentUnknown {
		t.Fatalf("ParseIntent() = %s, want UNKNOWN", got)
	}
}

func TestIntentClasses(t *testing.T) {
	t.Parallel()

	if !IntentPlanTrip.IsSearch() || IntentPlanTrip.IsMemory() {
		t.Fatal("PLAN_TRIP must be a search intent")
	}
	if !IntentDeleteTrip.IsMemory() || IntentDeleteTrip.IsSearch() {
		t.Fatal("DELETE_TRIP must be a memory intent")
	}
	if IntentUnknown.IsSearch() || IntentUnknown.IsMemory() {
		t.Fatal("UNKNOWN belongs to neither class")
	}
	if IntentListTrips.RequiresCity() {
		t.Fatal("LIST_TRIPS must not require a city")
	}
}

func TestMergeOntoNewValuesWin(t *testing.T) {
	t.Parallel()

	base := EntitySet{City: "Madrid", Days: 3, Adults: 1}
	fresh := EntitySet{Adults: 4}

	got := fresh.MergeOnto(base)
	if got.City != "Madrid" || got.Days != 3 || got.Adults != 4 {
		t.Fatalf("MergeOnto() = %+v", got)
	}

	override := EntitySet{City: "Roma"}
	got = override.MergeOnto(base)
	if got.City != "Roma" || got.Days != 3 {
		t.Fatalf("MergeOnto() = %+v", got)
	}
}

func TestProviderErrorsMergeOrder(t *testing.T) {
	t.Parallel()

	m := MergedResult{
		Flight:      &FlightResult{Error: "vuelos caídos"},
		Hotel:       &HotelResult{},
		Destination: &DestinationResult{Error: "destino caído"},
	}
	got := m.ProviderErrors()
	if len(got) != 2 || got[0] != "vuelos caídos" || got[1] != "destino caído" {
		t.Fatalf("ProviderErrors() = %v", got)
	}
}
