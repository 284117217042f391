package tmx

// KeywordHelp describes one search keyword for the front ends' help screens.
type KeywordHelp struct {
	Keyword     string
	Description string
}

// SearchHelp lists the keywords understood by Translate.
var SearchHelp = []KeywordHelp{
	{"author:", "track author, e.g. author:lolsport"},
	{"type:", "race, puzzle, platform, stunts, shortcut, laps"},
	{"routes:", "single, multiple, symmetrical"},
	{"hasrecord / !hasrecord", "whether the track has at least one replay"},
	{"mood:", "sunrise, day, sunset, night"},
	{"difficulty:", "beginner, intermediate, expert, lunatic"},
	{"lbtype:", "standard, classic, nadeo, uncompetitive, beta, star"},
	{"uploaded:", "date or range, e.g. 2023-01-01...2023-12-31"},
	{"length:", "author time or range, e.g. 30s...1m30s"},
	{"in:", "screenshot, latestauthor, latestawardedauthor, supporter, hasrecord, unlimiter (prefix ! to exclude)"},
	{"tags:", "names or numbers, e.g. tags:tech,!lol or tags:7"},
	{`"name"`, "leading text (optionally quoted) is the track name"},
}

// ExampleLinks are search links shown in help screens.
var ExampleLinks = []string{
	"https://tmnf.exchange/tracksearch?query=author%3A+lolsport+difficulty%3A+lunatic+type%3A+race",
	"https://tmnf.exchange/tracksearch?query=tags%3A+7+in%3A+%21hasrecord",
}
