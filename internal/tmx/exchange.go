package tmx

import (
	"fmt"
	"net/url"
	"strings"
)

// Exchange is one TMX site. All sites expose the same API under BaseURL.
type Exchange struct {
	// Name is the short display name, e.g. "TMNF-X".
	Name string

	// BaseURL is the scheme and host without a trailing slash.
	BaseURL string
}

// DefaultExchange is used when a link or setting names no known site.
var DefaultExchange = Exchange{Name: "TMNF-X", BaseURL: "https://tmnf.exchange"}

var exchangesByHost = map[string]Exchange{
	"tmnf.exchange":            DefaultExchange,
	"tmuf.exchange":            {Name: "TMUF-X", BaseURL: "https://tmuf.exchange"},
	"original.tm-exchange.com": {Name: "TMO-X", BaseURL: "https://original.tm-exchange.com"},
	"sunrise.tm-exchange.com":  {Name: "TMS-X", BaseURL: "https://sunrise.tm-exchange.com"},
	"nations.tm-exchange.com":  {Name: "TMN-X", BaseURL: "https://nations.tm-exchange.com"},
}

// LookupExchange returns the exchange served at host.
// A leading "www." is ignored.
func LookupExchange(host string) (Exchange, bool) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	ex, ok := exchangesByHost[host]
	return ex, ok
}

// ResolveExchange turns a setting into an Exchange. The setting may be a
// known host ("tmuf.exchange"), a known site URL, or any other absolute
// URL, which is used as the base URL of a custom exchange. An empty
// setting resolves to DefaultExchange.
func ResolveExchange(setting string) (Exchange, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return DefaultExchange, nil
	}

	if ex, ok := LookupExchange(setting); ok {
		return ex, nil
	}

	u, err := url.Parse(setting)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Exchange{}, fmt.Errorf("unknown exchange %q", setting)
	}

	if ex, ok := LookupExchange(u.Hostname()); ok {
		return ex, nil
	}

	return Exchange{
		Name:    u.Host,
		BaseURL: strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"),
	}, nil
}

// TracksEndpoint is the track search endpoint.
func (e Exchange) TracksEndpoint() string {
	return e.BaseURL + "/api/tracks"
}

// TrackpacksEndpoint is the trackpack search endpoint.
func (e Exchange) TrackpacksEndpoint() string {
	return e.BaseURL + "/api/trackpacks"
}

// TrackFileURL is the download URL of a track's .Gbx file.
func (e Exchange) TrackFileURL(trackID int64) string {
	return fmt.Sprintf("%s/trackgbx/%d", e.BaseURL, trackID)
}

// TracksRequest returns a track search request carrying only the base fields.
func (e Exchange) TracksRequest() *APIRequest {
	req := NewAPIRequest(e.TracksEndpoint())
	req.Add("fields", "TrackId,TrackName")
	req.Add("count", fmt.Sprint(PageSize))
	return req
}

// PackTracksRequest returns a request listing every track of a trackpack.
func (e Exchange) PackTracksRequest(packID int64) *APIRequest {
	req := e.TracksRequest()
	req.Add("packid", fmt.Sprint(packID))
	return req
}

// PackInfoRequest returns a request for a trackpack's name.
func (e Exchange) PackInfoRequest(packID int64) *APIRequest {
	req := NewAPIRequest(e.TrackpacksEndpoint())
	req.Add("fields", "PackName")
	req.Add("id", fmt.Sprint(packID))
	return req
}
