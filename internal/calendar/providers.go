package calendar

import (
	"encoding/json"
	"os"
)

// ProviderDescriptor describes a waste operator whose site follows the
// lookup + pickup calendar layout.
type ProviderDescriptor struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	LookupURL string `json:"lookupUrl"`
	Notes     string `json:"notes,omitempty"`
}

const providersEnv = "AVFALL_PROVIDERS_JSON"

// DefaultProviderKey is used when no provider is configured.
const DefaultProviderKey = "avfallsor"

func defaultProviders() []ProviderDescriptor {
	return []ProviderDescriptor{
		{
			Key:       "avfallsor",
			Name:      "Avfall Sør",
			LookupURL: "https://avfallsor.no/wp-json/addresses/v1/address",
			Notes:     "Kristiansand region pickup calendar",
		},
	}
}

// Providers returns the provider registry, overridable as a JSON array in
// AVFALL_PROVIDERS_JSON.
func Providers() []ProviderDescriptor {
	raw := os.Getenv(providersEnv)
	if raw == "" {
		return defaultProviders()
	}
	var out []ProviderDescriptor
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultProviders()
	}
	return out
}

func GetProvider(key string) (ProviderDescriptor, bool) {
	for _, p := range Providers() {
		if p.Key == key {
			return p, true
		}
	}
	return ProviderDescriptor{}, false
}
