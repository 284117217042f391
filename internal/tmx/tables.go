package tmx

// Enumeration tables of the TMX search grammar. They are never modified
// after initialization and are only reachable through the lookup functions
// below.
var (
	primaryTypes = map[string]int{
		"race": 0, "puzzle": 1, "platform": 2, "stunts": 3, "shortcut": 4, "laps": 5,
	}

	routes = map[string]int{
		"single": 0, "multiple": 1, "symmetrical": 2,
	}

	moods = map[string]int{
		"sunrise": 0, "day": 1, "sunset": 2, "night": 3,
	}

	difficulties = map[string]int{
		"beginner": 1, "intermediate": 2, "expert": 3, "lunatic": 4,
	}

	leaderboardTypes = map[string]int{
		"standard": 0, "classic": 1, "nadeo": 2, "uncompetitive": 3, "beta": 4, "star": 5,
	}

	tags = map[string]int{
		"normal": 0, "stunt": 1, "maze": 2, "offroad": 3, "laps": 4, "fullspeed": 5,
		"lol": 6, "tech": 7, "speedtech": 8, "rpg": 9, "pressforward": 10,
		"trial": 11, "grass": 12,
	}

	// Collections accepted by "in:". Each maps to an "in<name>" parameter
	// set to 1, or 0 when excluded with "!".
	collections = map[string]struct{}{
		"screenshot":          {},
		"latestauthor":        {},
		"latestawardedauthor": {},
		"supporter":           {},
		"hasrecord":           {},
		"unlimiter":           {},
	}
)

// PrimaryTypeCode returns the API code of a track type such as "race".
func PrimaryTypeCode(name string) (int, bool) { return lookup(primaryTypes, name) }

// RouteCode returns the API code of a route kind such as "multiple".
func RouteCode(name string) (int, bool) { return lookup(routes, name) }

// MoodCode returns the API code of a mood such as "night".
func MoodCode(name string) (int, bool) { return lookup(moods, name) }

// DifficultyCode returns the API code of a difficulty such as "expert".
func DifficultyCode(name string) (int, bool) { return lookup(difficulties, name) }

// LeaderboardTypeCode returns the API code of a leaderboard type such as "classic".
func LeaderboardTypeCode(name string) (int, bool) { return lookup(leaderboardTypes, name) }

// TagCode returns the API code of a tag such as "tech".
func TagCode(name string) (int, bool) { return lookup(tags, name) }

// IsCollection reports whether name is a collection accepted by "in:".
func IsCollection(name string) bool {
	_, ok := collections[name]
	return ok
}

func lookup(table map[string]int, name string) (int, bool) {
	code, ok := table[name]
	return code, ok
}
