// Package http provides the HTTP client used to talk to the exchanges.
//
// Client sets the User-Agent header, applies a request timeout, decodes
// JSON pages and streams track files to disk:
//
//	client := http.NewClient(http.WithTimeout(30 * time.Second))
//
//	var page dto.JSONTrackPage
//	if err := client.GetJSON(ctx, req.URL(), &page); err != nil {
//	    return err
//	}
//
// Non-200 responses are returned as *StatusError. IsRetryable tells the
// download manager which failures are worth another attempt.
package http
