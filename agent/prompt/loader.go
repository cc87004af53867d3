package prompt

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
)

var (
	//go:embed template/nlu.txt
	nluRaw string

	//go:embed template/geo.txt
	geoRaw string

	//go:embed template/iata.txt
	iataRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	NLU  string
	Geo  string
	IATA string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe for
// concurrent use.
func LoadPromptSet() PromptSet {
	return PromptSet{
		NLU:  strings.TrimSpace(nluRaw),
		Geo:  strings.TrimSpace(geoRaw),
		IATA: strings.TrimSpace(iataRaw),
	}
}

// Digest returns a short version seed for a prompt template. Editing the
// template changes the seed, which invalidates every classification cached
// under the previous prompt without any explicit migration.
func Digest(template string) string {
	sum := sha256.Sum256([]byte(template))
	return hex.EncodeToString(sum[:])[:8]
}
