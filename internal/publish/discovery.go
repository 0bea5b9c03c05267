package publish

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Device groups all sensors of one provider in Home Assistant.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// SensorConfig is the Home Assistant MQTT discovery payload for one waste type.
type SensorConfig struct {
	Name          string `json:"name"`
	UniqueID      string `json:"unique_id"`
	StateTopic    string `json:"state_topic"`
	Icon          string `json:"icon"`
	DeviceClass   string `json:"device_class"`
	ValueTemplate string `json:"value_template"`
	Device        Device `json:"device"`
}

// Topics holds the topic pair used for one sensor.
type Topics struct {
	Config string
	State  string
}

// SensorID returns the discovery object id, e.g. "avfallsor_restavfall".
func SensorID(providerKey, wasteType string) string {
	return providerKey + "_" + sanitize(wasteType)
}

// TopicsFor returns the discovery config and state topics for a waste type.
func TopicsFor(prefix, providerKey, wasteType string) Topics {
	id := SensorID(providerKey, wasteType)
	return Topics{
		Config: fmt.Sprintf("%s/sensor/%s/config", prefix, id),
		State:  fmt.Sprintf("%s/sensor/%s/state", providerKey, id),
	}
}

// NewSensorConfig builds the discovery payload for a waste type.
func NewSensorConfig(providerKey, providerName, wasteType, stateTopic string) SensorConfig {
	return SensorConfig{
		Name:          providerName + " " + capitalize(wasteType),
		UniqueID:      SensorID(providerKey, wasteType),
		StateTopic:    stateTopic,
		Icon:          "mdi:trash-can",
		DeviceClass:   "date",
		ValueTemplate: "{{ value }}",
		Device: Device{
			Identifiers:  []string{providerKey},
			Name:         providerName,
			Manufacturer: providerName,
			Model:        "Waste Collection Calendar",
		},
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// sanitize keeps waste types usable as a single MQTT topic level.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
