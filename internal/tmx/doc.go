// Package tmx knows how to talk to the TrackMania Exchange sites.
//
// The package handles two concerns:
//
//  1. Translating a search link copied from a TMX site into the equivalent
//     API request
//  2. Describing the exchange sites and their endpoints
//
// # Search Link Translation
//
// The TMX websites encode the search box contents in the "query" parameter
// of the search page URL. That text uses an informal keyword grammar:
//
//	"My Track" author:foo type:race tags:tech,!lol length:30s...1m
//
// Translate turns such a link into an APIRequest:
//
//	req, err := tmx.Translate("https://tmnf.exchange/tracksearch?query=author%3A+foo")
//	if err != nil {
//	    // a range or duration filter was malformed and dropped;
//	    // req is still usable
//	}
//	fmt.Println(req.URL())
//	// https://tmnf.exchange/api/tracks?fields=TrackId%2CTrackName&count=1000&author=foo
//
// Unknown keyword values are dropped without an error, the same way the
// website ignores them.
//
// # Exchanges
//
// Five sites serve the same API. The exchange is picked from the host of
// the search link; LookupExchange and ResolveExchange give access to the
// table for trackpack downloads where no link is involved.
package tmx
