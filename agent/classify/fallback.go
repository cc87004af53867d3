package classify

import (
	"regexp"
	"strconv"
	"strings"

	contractx "viajero/agent/contract"
	"viajero/agent/geo"
)

var (
	adultsPattern = regexp.MustCompile(`(\d+)\s*(?:personas|adultos?)`)
	cityPattern   = regexp.MustCompile(`\ba\s+([a-záéíóúüñ][a-záéíóúüñ ]*?)(?:\s+(?:para|de)\b|$)`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// ApplyFallback is the deterministic parachute that runs when classification
// degrades to UNKNOWN: keyword checks for the four search intents, an
// "N personas" adult count, and a city phrase after "a ...". It never
// downgrades a known intent and never errors.
func ApplyFallback(message string, cls contractx.Classification) contractx.Classification {
	if cls.Intent != contractx.IntentUnknown {
		return cls
	}

	txt := strings.ToLower(message)

	switch {
	case containsAny(txt, "vuelo", "vuelos"):
		cls.Intent = contractx.IntentSearchFlights
	case containsAny(txt, "hotel", "hoteles"):
		cls.Intent = contractx.IntentSearchHotels
	case containsAny(txt, "info", "información", "qué ver", "que ver"):
		cls.Intent = contractx.IntentGetDestinationInfo
	case containsAny(txt, "viaje", "plan", "escapada", "itinerario"):
		cls.Intent = contractx.IntentPlanTrip
	}

	if m := adultsPattern.FindStringSubmatch(txt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			cls.Entities.Adults = n
		}
	} else if cls.Entities.Adults == 0 {
		cls.Entities.Adults = 1
	}

	if m := cityPattern.FindStringSubmatch(txt); m != nil {
		guess := spacePattern.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		cls.Entities.City = geo.TitleCase(guess)
	}

	return cls
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
