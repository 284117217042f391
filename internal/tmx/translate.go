package tmx

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidDuration is returned for a length that is not of the form NhNmNs.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidRange is returned for a range with more than one "...".
	ErrInvalidRange = errors.New("invalid range")
)

// FilterError reports a search filter that was dropped because its value
// could not be parsed.
type FilterError struct {
	Keyword string
	Value   string
	Err     error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Keyword, e.Value, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

const (
	kwAuthor     = "author:"
	kwType       = "type:"
	kwRoutes     = "routes:"
	kwMood       = "mood:"
	kwDifficulty = "difficulty:"
	kwLBType     = "lbtype:"
	kwUploaded   = "uploaded:"
	kwLength     = "length:"
	kwIn         = "in:"
	kwTags       = "tags:"

	bareHasRecord    = "hasrecord"
	bareNotHasRecord = "!hasrecord"

	rangeSeparator = "..."
)

var keywords = []string{
	kwAuthor, kwType, kwRoutes, kwMood, kwDifficulty,
	kwLBType, kwUploaded, kwLength, kwIn, kwTags,
}

var durationPattern = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// maxDurationSeconds is the longest duration whose milliseconds fit in int64.
const maxDurationSeconds = math.MaxInt64 / 1000

// Translate converts a TMX search link into an API request. The exchange
// is taken from the link's host, falling back to DefaultExchange.
//
// A non-nil error means at least one filter was malformed and dropped; the
// returned request is usable either way.
func Translate(link string) (*APIRequest, error) {
	return TranslateWith(link, DefaultExchange)
}

// TranslateWith is Translate with an explicit fallback exchange for links
// whose host is not a known TMX site.
func TranslateWith(link string, fallback Exchange) (*APIRequest, error) {
	ex, query := parseSearchLink(link, fallback)
	return TranslateQuery(ex, query)
}

// TranslateQuery converts the decoded text of a search box into a track
// search request on ex.
func TranslateQuery(ex Exchange, query string) (*APIRequest, error) {
	req := ex.TracksRequest()
	sq := parseSearchQuery(query)

	var errs []error

	if author := sq.values[kwAuthor]; author != "" {
		req.Add("author", author)
	}

	addCode(req, "primarytype", sq.lower(kwType), PrimaryTypeCode)
	addCode(req, "route", sq.lower(kwRoutes), RouteCode)

	switch {
	case sq.bare[bareNotHasRecord]:
		req.Add("inhasrecord", "0")
	case sq.bare[bareHasRecord]:
		req.Add("inhasrecord", "1")
	}

	addCode(req, "mood", sq.lower(kwMood), MoodCode)
	addCode(req, "difficulty", sq.lower(kwDifficulty), DifficultyCode)
	addCode(req, "lbtype", sq.lower(kwLBType), LeaderboardTypeCode)

	if v := sq.values[kwUploaded]; v != "" {
		if err := addUploaded(req, v); err != nil {
			errs = append(errs, err)
		}
	}

	if v := sq.values[kwLength]; v != "" {
		if err := addLength(req, v); err != nil {
			errs = append(errs, err)
		}
	}

	if v := sq.lower(kwIn); v != "" {
		addCollections(req, v)
	}

	if v := sq.lower(kwTags); v != "" {
		addTags(req, v)
	}

	if sq.name != "" {
		req.Add("name", sq.name)
	}

	return req, errors.Join(errs...)
}

// ConvertToMilliseconds converts a duration such as "1h0m15s", "2m" or
// "15s" to milliseconds. Every component is optional.
func ConvertToMilliseconds(s string) (int64, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var (
		parts  [3]int64
		limits = [3]int64{maxDurationSeconds / 3600, maxDurationSeconds / 60, maxDurationSeconds}
	)
	for i, group := range m[1:] {
		if group == "" {
			continue
		}
		n, err := strconv.ParseInt(group, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, s, err)
		}
		if n > limits[i] {
			return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidDuration, s)
		}
		parts[i] = n
	}

	hours, minutes, seconds := parts[0], parts[1], parts[2]
	total := hours*3600 + minutes*60 + seconds
	if total > maxDurationSeconds {
		return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidDuration, s)
	}
	return total * 1000, nil
}

// IsSearchLink reports whether input is an http(s) link or a bare query
// string such as "query=...". A link without a query parameter is an
// unfiltered search of its exchange.
func IsSearchLink(input string) bool {
	input = strings.TrimSpace(input)
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return strings.Contains(input, "=")
	default:
		return false
	}
}

// parseSearchLink extracts the exchange and the decoded "query" parameter
// from a search link. Bare query strings ("query=...") are accepted too.
func parseSearchLink(link string, fallback Exchange) (Exchange, string) {
	link = strings.TrimSpace(link)
	ex := fallback

	u, err := url.Parse(link)
	if err != nil {
		return ex, ""
	}

	if known, ok := LookupExchange(u.Hostname()); ok {
		ex = known
	}

	rawQuery := u.RawQuery
	if rawQuery == "" && u.Scheme == "" && u.Host == "" && strings.Contains(link, "=") {
		rawQuery = link
	}

	// ParseQuery keeps the pairs it could decode even when it fails.
	values, _ := url.ParseQuery(rawQuery)
	return ex, values.Get("query")
}

// searchQuery is the tokenized form of a search box text.
type searchQuery struct {
	name   string
	values map[string]string
	bare   map[string]bool
}

func (sq searchQuery) lower(keyword string) string {
	return strings.ToLower(strings.TrimSpace(sq.values[keyword]))
}

func parseSearchQuery(raw string) searchQuery {
	sq := searchQuery{
		values: make(map[string]string),
		bare:   make(map[string]bool),
	}

	rest := raw
	quoted := false
	if strings.HasPrefix(raw, `"`) {
		if end := strings.Index(raw[1:], `"`); end >= 0 {
			sq.name = raw[1 : end+1]
			rest = raw[end+2:]
			quoted = true
		}
	}

	fields := strings.Fields(rest)
	i := 0

	if !quoted {
		var nameParts []string
		for ; i < len(fields) && !startsWithKeyword(fields[i]); i++ {
			nameParts = append(nameParts, fields[i])
		}
		sq.name = strings.Trim(strings.Join(nameParts, " "), "|:")
	}

	for ; i < len(fields); i++ {
		field := fields[i]

		if field == bareHasRecord || field == bareNotHasRecord {
			sq.bare[field] = true
			continue
		}

		keyword, ok := matchKeyword(field)
		if !ok {
			continue
		}

		value := field[len(keyword):]
		if value == "" && i+1 < len(fields) && !isKeyword(fields[i+1]) {
			i++
			value = fields[i]
		}

		// The first occurrence of a keyword wins.
		if _, seen := sq.values[keyword]; !seen {
			sq.values[keyword] = value
		}
	}

	return sq
}

func matchKeyword(field string) (string, bool) {
	for _, kw := range keywords {
		if strings.HasPrefix(field, kw) {
			return kw, true
		}
	}
	return "", false
}

func isKeyword(field string) bool {
	_, ok := matchKeyword(field)
	return ok
}

// startsWithKeyword reports whether field ends a leading unquoted name.
func startsWithKeyword(field string) bool {
	return isKeyword(field) ||
		strings.HasPrefix(field, bareHasRecord) ||
		strings.HasPrefix(field, bareNotHasRecord)
}

func addCode(req *APIRequest, param, value string, code func(string) (int, bool)) {
	if value == "" {
		return
	}
	if c, ok := code(value); ok {
		req.Add(param, strconv.Itoa(c))
	}
}

func splitRange(value string) (start, end string, isRange bool, err error) {
	if n := strings.Count(value, rangeSeparator); n > 1 {
		return "", "", false, ErrInvalidRange
	}
	start, end, isRange = strings.Cut(value, rangeSeparator)
	return start, end, isRange, nil
}

func addUploaded(req *APIRequest, value string) error {
	start, end, isRange, err := splitRange(value)
	if err != nil {
		return &FilterError{Keyword: kwUploaded, Value: value, Err: err}
	}

	if start != "" {
		req.Add("uploadedafter", start+"T00:00:00")
	}
	if isRange && end != "" {
		req.Add("uploadedbefore", end+"T23:59:59")
	}
	return nil
}

func addLength(req *APIRequest, value string) error {
	start, end, isRange, err := splitRange(value)
	if err != nil {
		return &FilterError{Keyword: kwLength, Value: value, Err: err}
	}

	var minMS, maxMS int64
	if start != "" {
		if minMS, err = ConvertToMilliseconds(start); err != nil {
			return &FilterError{Keyword: kwLength, Value: value, Err: err}
		}
	}
	if isRange && end != "" {
		if maxMS, err = ConvertToMilliseconds(end); err != nil {
			return &FilterError{Keyword: kwLength, Value: value, Err: err}
		}
	}

	if start != "" {
		req.Add("authortimemin", strconv.FormatInt(minMS, 10))
	}
	if isRange && end != "" {
		req.Add("authortimemax", strconv.FormatInt(maxMS, 10))
	}
	return nil
}

func addCollections(req *APIRequest, value string) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		excluded := strings.HasPrefix(entry, "!")
		name := strings.TrimPrefix(entry, "!")
		if !IsCollection(name) {
			continue
		}
		if excluded {
			req.Add("in"+name, "0")
		} else {
			req.Add("in"+name, "1")
		}
	}
}

func addTags(req *APIRequest, value string) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		param := "tag"
		if strings.HasPrefix(entry, "!") {
			param = "etag"
			entry = strings.TrimSpace(entry[1:])
		}

		switch {
		case isDigits(entry):
			req.Add(param, entry)
		default:
			if code, ok := TagCode(entry); ok {
				req.Add(param, strconv.Itoa(code))
			}
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
