// Package download turns a search link or trackpack id into downloaded
// track files.
//
// # Manager
//
// The Manager coordinates the whole process:
//
//  1. Resolve the input: a trackpack id, or a search link translated by tmx
//  2. Fetch result pages with the "after" cursor until the set is exhausted
//  3. Apply shuffle and max_tracks
//  4. Download each track's .Gbx file, retrying transient failures
//  5. Write the playlist and metadata files (optional)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(ctx, link); err != nil {
//	    return err
//	}
//	if err := manager.StartDownloads(ctx); err != nil {
//	    return err
//	}
//
// # Retries
//
// Page requests and downloads are attempted up to download_max_retries
// times, waiting download_retry_cooldown * download_retry_exponent^n
// seconds between attempts. Only transport errors, 429 and 5xx responses
// are retried. A page fetch that runs out of attempts fails with an error
// wrapping ErrRetriesExhausted; a track download that does is reported and
// the batch continues.
//
// # Progress Tracking
//
// Progress is reported through the ProgressEvent callback, which may be
// called from several goroutines when max_concurrent_downloads is above 1.
// GetProgress returns a Stats snapshot for progress bars.
package download
