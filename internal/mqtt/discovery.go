package mqtt

import (
	"encoding/json"
	"strings"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/version"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string
	Payload []byte
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name               string   `json:"name"`
	UniqueID           string   `json:"unique_id"`
	StateTopic         string   `json:"state_topic"`
	CommandTopic       string   `json:"command_topic,omitempty"`
	AvailabilityTopic  string   `json:"availability_topic"`
	DeviceClass        string   `json:"device_class,omitempty"`
	PayloadOn          string   `json:"payload_on,omitempty"`
	PayloadOff         string   `json:"payload_off,omitempty"`
	SupportedFeatures  []string `json:"supported_features,omitempty"`
	CodeArmRequired    *bool    `json:"code_arm_required,omitempty"`
	CodeDisarmRequired *bool    `json:"code_disarm_required,omitempty"`
	Icon               string   `json:"icon,omitempty"`
	Device             haDevice `json:"device"`
}

// nodeID returns the discovery node identifier derived from the topic prefix.
func nodeID(prefix string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}

		return '_'
	}, strings.ToLower(prefix))
}

// supportedFeatures lists the arm commands of the enabled targets.
func supportedFeatures(targets []security.Mode) []string {
	features := make([]string, 0, len(targets))

	for _, mode := range targets {
		switch mode { //nolint:exhaustive // Off and Triggered have no arm feature.
		case security.ModeHome:
			features = append(features, "arm_home")
		case security.ModeAway:
			features = append(features, "arm_away")
		case security.ModeNight:
			features = append(features, "arm_night")
		}
	}

	return features
}

// buildDiscovery generates the HA discovery messages of the security system.
func buildDiscovery(cfg Config, targets []security.Mode) []discoveryMsg {
	id := nodeID(cfg.TopicPrefix)
	t := newTopics(cfg.TopicPrefix)
	noCode := false

	dev := haDevice{
		Identifiers:  []string{id},
		Manufacturer: version.Product,
		Model:        "Security system",
		Name:         cfg.Name,
		SWVersion:    version.Short(),
	}

	entities := []struct {
		component string
		object    string
		payload   haDiscovery
	}{
		{"alarm_control_panel", "panel", haDiscovery{
			Name:               cfg.Name,
			StateTopic:         t.state,
			CommandTopic:       t.command,
			SupportedFeatures:  supportedFeatures(targets),
			CodeArmRequired:    &noCode,
			CodeDisarmRequired: &noCode,
		}},
		{"switch", "siren", haDiscovery{
			Name:         cfg.Name + " Siren",
			StateTopic:   t.siren,
			CommandTopic: t.siren + setSuffix,
			PayloadOn:    payloadOn,
			PayloadOff:   payloadOff,
			Icon:         "mdi:alarm-light",
		}},
		{"binary_sensor", "siren_motion", haDiscovery{
			Name:        cfg.Name + " Siren Motion",
			StateTopic:  t.sirenPulse,
			DeviceClass: "motion",
			PayloadOn:   payloadOn,
			PayloadOff:  payloadOff,
		}},
		{"binary_sensor", "arming", haDiscovery{
			Name:        cfg.Name + " Arming",
			StateTopic:  t.arming,
			DeviceClass: "running",
			PayloadOn:   payloadOn,
			PayloadOff:  payloadOff,
		}},
		{"switch", "delay_arming", haDiscovery{
			Name:         cfg.Name + " Arming Delay",
			StateTopic:   t.delayArming,
			CommandTopic: t.delayArming + setSuffix,
			PayloadOn:    payloadOn,
			PayloadOff:   payloadOff,
			Icon:         "mdi:timer-outline",
		}},
	}

	msgs := make([]discoveryMsg, 0, len(entities))

	for _, e := range entities {
		p := e.payload
		p.UniqueID = id + "_" + e.object
		p.AvailabilityTopic = t.availability
		p.Device = dev

		data, err := json.Marshal(p)
		if err != nil {
			continue
		}

		msgs = append(msgs, discoveryMsg{
			Topic:   cfg.DiscoveryPrefix + "/" + e.component + "/" + id + "/" + e.object + "/config",
			Payload: data,
		})
	}

	return msgs
}
