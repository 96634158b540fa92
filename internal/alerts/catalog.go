// Package alerts holds the static alert lookup tables: severity classes, display
// labels and per-city shelter times.
package alerts

import (
	"strings"

	"silentwave/internal/models"
)

var severities = map[models.AlertType]models.Severity{
	models.AlertMissiles:                      models.SeverityCritical,
	models.AlertHostileAircraftIntrusion:      models.SeverityCritical,
	models.AlertRadiologicalEvent:             models.SeverityCritical,
	models.AlertTsunami:                       models.SeverityCritical,
	models.AlertTerroristInfiltration:         models.SeverityCritical,
	models.AlertEarthQuake:                    models.SeverityWarning,
	models.AlertHazardousMaterials:            models.SeverityWarning,
	models.AlertNewsFlash:                     models.SeverityWarning,
	models.AlertMissilesDrill:                 models.SeverityDrill,
	models.AlertEarthQuakeDrill:               models.SeverityDrill,
	models.AlertRadiologicalEventDrill:        models.SeverityDrill,
	models.AlertTsunamiDrill:                  models.SeverityDrill,
	models.AlertHostileAircraftIntrusionDrill: models.SeverityDrill,
	models.AlertHazardousMaterialsDrill:       models.SeverityDrill,
	models.AlertTerroristInfiltrationDrill:    models.SeverityDrill,
}

// Severity classifies an alert type. Types without a class are "none".
func Severity(t models.AlertType) models.Severity {
	if s, ok := severities[t]; ok {
		return s
	}
	return models.SeverityNone
}

var labels = map[models.AlertType]string{
	models.AlertNone:                          "שגרה",
	models.AlertMissiles:                      "🚀 ירי רקטות וטילים",
	models.AlertRadiologicalEvent:             "☢️ אירוע רדיולוגי",
	models.AlertEarthQuake:                    "🌍 רעידת אדמה",
	models.AlertTsunami:                       "🌊 צונאמי",
	models.AlertHostileAircraftIntrusion:      "✈️ חדירת כלי טיס עוין",
	models.AlertHazardousMaterials:            "⚠️ אירוע חומרים מסוכנים",
	models.AlertTerroristInfiltration:         "🔴 חדירת מחבלים",
	models.AlertNewsFlash:                     "📢 מבזק חדשות",
	models.AlertMissilesDrill:                 "🚀 תרגול ירי רקטות",
	models.AlertEarthQuakeDrill:               "🌍 תרגול רעידת אדמה",
	models.AlertRadiologicalEventDrill:        "☢️ תרגול אירוע רדיולוגי",
	models.AlertTsunamiDrill:                  "🌊 תרגול צונאמי",
	models.AlertHostileAircraftIntrusionDrill: "✈️ תרגול חדירת כלי טיס",
	models.AlertHazardousMaterialsDrill:       "⚠️ תרגול חומרים מסוכנים",
	models.AlertTerroristInfiltrationDrill:    "🔴 תרגול חדירת מחבלים",
	models.AlertUnknown:                       "❓ התרעה לא ידועה",
}

const (
	LabelAllClear     = "✅ חזרה לשגרה / יציאה מהמרחב המוגן"
	LabelEarlyWarning = "📢 התרעה מוקדמת"
)

var (
	allClearPhrases     = []string{"ניתן לצאת מהמרחב המוגן", "סיום האירוע", "חזרה לשגרה"}
	earlyWarningPhrases = []string{"היכנסו למרחב מוגן", "התרעה מוקדמת"}
)

// Label returns the Hebrew display label for an alert.
// A news flash prefers the upstream title, then falls back to phrase matching on
// the instructions to tell "all clear" messages from early warnings.
func Label(a models.Alert) string {
	base, ok := labels[a.Type]
	if !ok {
		base = labels[models.AlertUnknown]
	}

	if a.Type != models.AlertNewsFlash {
		return base
	}
	if a.Title != "" {
		return "📢 " + a.Title
	}
	if containsAny(a.Instructions, allClearPhrases) {
		return LabelAllClear
	}
	if containsAny(a.Instructions, earlyWarningPhrases) {
		return LabelEarlyWarning
	}
	return base
}

func containsAny(s string, phrases []string) bool {
	if s == "" {
		return false
	}
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
