package contract

import "context"

// Classifier is the raw NLU port. It is untrusted: it may fail, time out, or
// return malformed output, and the caching layer is responsible for degrading
// every failure to UNKNOWN.
type Classifier interface {
	Classify(ctx context.Context, message string, turnContext map[string]any) (Classification, error)
	// PromptDigest identifies the current prompt template; changing the
	// template invalidates every prior cache entry without a migration.
	PromptDigest() string
}

// GeoGateway groups the two black-box location calls the dispatcher needs:
// mapping a fuzzy region onto a practical airport city, and finding an IATA
// code the static resolver does not know.
type GeoGateway interface {
	NormalizeLocation(ctx context.Context, location string) (string, error)
	LookupIATA(ctx context.Context, city string) (string, error)
}

// FlightPort searches one-way flights for a date.
type FlightPort interface {
	SearchFlights(ctx context.Context, origin, destination, date string, adults int) (FlightResult, error)
}

// HotelPort searches stays for a check-in/check-out window.
type HotelPort interface {
	SearchHotels(ctx context.Context, city, checkin, checkout string, adults int) (HotelResult, error)
}

// DestinationPort summarizes a destination for a trip of the given length.
type DestinationPort interface {
	Summarize(ctx context.Context, city string, days int) (DestinationResult, error)
}

// BudgetPort estimates a total cost from the gathered flight and hotel offers.
type BudgetPort interface {
	Estimate(ctx context.Context, flights []FlightInfo, hotels []HotelInfo, checkin, checkout string, adults int) (BudgetResult, error)
}
