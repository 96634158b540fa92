package alerts

// DefaultShelterTime applies to cities missing from the table.
const DefaultShelterTime = 90

// shelterTimes is the time to reach a protected space, in seconds.
var shelterTimes = map[string]int{
	"תל אביב - מרכז":         90,
	"תל אביב - מזרח":         90,
	"תל אביב - דרום":         90,
	"תל אביב - צפון":         90,
	"ירושלים":                90,
	"חיפה - כרמל ועיר תחתית": 60,
	"חיפה - קריות":           60,
	"חיפה - נאות פרס":        60,
	"באר שבע":                60,
	"אשדוד":                  45,
	"אשקלון":                 30,
	"נתניה":                  90,
	"פתח תקוה":               90,
	"ראשון לציון":            90,
	"רמת גן":                 90,
	"גבעתיים":                90,
	"בני ברק":                90,
	"חולון":                  90,
	"בת ים":                  90,
	"כפר סבא":                90,
	"הרצליה":                 90,
	"רעננה":                  90,
	"נס ציונה":               90,
	"רחובות":                 90,
	"לוד":                    90,
	"רמלה":                   90,
	"מודיעין":                90,
	"מודיעין עילית":          90,
	"עפולה":                  60,
	"נצרת":                   60,
	"כנרת":                   60,
	"שדרות":                  15,
	"נתיבות":                 30,
	"אופקים":                 45,
	"יבנה":                   60,
	"גדרה":                   60,
	"קריית גת":               60,
	"קריית מלאכי":            60,
	"טבריה":                  60,
	"צפת":                    30,
	"עכו":                    30,
	"נהריה":                  15,
	"קריית שמונה":            0,
	"קריית אתא":              60,
	"פרדס חנה כרכור":         90,
}

func init() {
	normalized := make(map[string]int, len(shelterTimes))
	for city, secs := range shelterTimes {
		normalized[NormalizeCity(city)] = secs
	}
	shelterTimes = normalized
}

// ShelterTime returns the shortest shelter time among the given cities.
// An empty list gets the default.
func ShelterTime(cities []string) int {
	if len(cities) == 0 {
		return DefaultShelterTime
	}
	min := -1
	for _, c := range cities {
		secs, ok := shelterTimes[NormalizeCity(c)]
		if !ok {
			secs = DefaultShelterTime
		}
		if min < 0 || secs < min {
			min = secs
		}
	}
	return min
}
