package models

import "time"

// AlertType is the classified kind of an HFC alert.
type AlertType string

const (
	AlertNone                          AlertType = "none"
	AlertMissiles                      AlertType = "missiles"
	AlertRadiologicalEvent             AlertType = "radiologicalEvent"
	AlertEarthQuake                    AlertType = "earthQuake"
	AlertTsunami                       AlertType = "tsunami"
	AlertHostileAircraftIntrusion      AlertType = "hostileAircraftIntrusion"
	AlertHazardousMaterials            AlertType = "hazardousMaterials"
	AlertTerroristInfiltration         AlertType = "terroristInfiltration"
	AlertNewsFlash                     AlertType = "newsFlash"
	AlertMissilesDrill                 AlertType = "missilesDrill"
	AlertEarthQuakeDrill               AlertType = "earthQuakeDrill"
	AlertRadiologicalEventDrill        AlertType = "radiologicalEventDrill"
	AlertTsunamiDrill                  AlertType = "tsunamiDrill"
	AlertHostileAircraftIntrusionDrill AlertType = "hostileAircraftIntrusionDrill"
	AlertHazardousMaterialsDrill       AlertType = "hazardousMaterialsDrill"
	AlertTerroristInfiltrationDrill    AlertType = "terroristInfiltrationDrill"
	AlertUnknown                       AlertType = "unknown"
)

// AllAlertTypes lists every known type, "none" first.
var AllAlertTypes = []AlertType{
	AlertNone,
	AlertMissiles,
	AlertRadiologicalEvent,
	AlertEarthQuake,
	AlertTsunami,
	AlertHostileAircraftIntrusion,
	AlertHazardousMaterials,
	AlertTerroristInfiltration,
	AlertNewsFlash,
	AlertMissilesDrill,
	AlertEarthQuakeDrill,
	AlertRadiologicalEventDrill,
	AlertTsunamiDrill,
	AlertHostileAircraftIntrusionDrill,
	AlertHazardousMaterialsDrill,
	AlertTerroristInfiltrationDrill,
	AlertUnknown,
}

// ParseAlertType maps a raw string to a known type. Empty input is "none",
// anything unrecognised is "unknown".
func ParseAlertType(s string) AlertType {
	if s == "" {
		return AlertNone
	}
	for _, t := range AllAlertTypes {
		if string(t) == s {
			return t
		}
	}
	return AlertUnknown
}

// Severity drives the audio and visual treatment of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityDrill    Severity = "drill"
	SeverityNone     Severity = "none"
)

// Alert is the normalized shape served by /api/alerts.
type Alert struct {
	Type         AlertType  `json:"type"`
	Cities       []string   `json:"cities"`
	Instructions string     `json:"instructions"`
	Timestamp    time.Time  `json:"timestamp"`
	ReceivedAt   *time.Time `json:"receivedAt,omitempty"`
	Title        string     `json:"title,omitempty"`
}

// NoneAlert is the "all quiet" payload, also used as the fallback on upstream errors.
func NoneAlert(now time.Time) Alert {
	return Alert{
		Type:      AlertNone,
		Cities:    []string{},
		Timestamp: now.UTC(),
	}
}

// AlertLogEntry is one row of the alert history shown on the dashboard.
type AlertLogEntry struct {
	Alert
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// ConnectionStatus reports the health of the alert polling loop.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// State is a point-in-time snapshot of the alert reducer.
type State struct {
	CurrentAlert         *Alert           `json:"currentAlert"`
	Label                string           `json:"label"`
	Severity             Severity         `json:"severity"`
	IsAlarming           bool             `json:"isAlarming"`
	RemainingShelterTime *int             `json:"remainingShelterTime"`
	ConnectionStatus     ConnectionStatus `json:"connectionStatus"`
	LastPollTime         *time.Time       `json:"lastPollTime"`
	SelectedCities       []string         `json:"selectedCities"`
	AudioUnlocked        bool             `json:"audioUnlocked"`
}
