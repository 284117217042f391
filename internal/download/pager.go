package download

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tmx-tools/tmx-downloader/internal/tmx"
	"github.com/tmx-tools/tmx-downloader/internal/tmx/dto"
)

// cursorParam carries the last TrackId of the previous page.
const cursorParam = "after"

// fetchAll pages through req until a page is empty or short, or until
// limit results have been collected (limit 0 means no limit).
func (m *Manager) fetchAll(ctx context.Context, req *tmx.APIRequest, limit int) ([]dto.JSONTrack, error) {
	var all []dto.JSONTrack

	pageReq := req.Clone()
	for page := 1; ; page++ {
		var resp dto.JSONTrackPage
		err := m.withRetry(ctx, fmt.Sprintf("page %d", page), func() error {
			resp = dto.JSONTrackPage{}
			return m.httpClient.GetJSON(ctx, pageReq.URL(), &resp)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch tracks: %w", err)
		}

		all = append(all, resp.Results...)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Page %d: %d tracks (%d total)", page, len(resp.Results), len(all)), Level: LevelVerbose})

		if len(resp.Results) < tmx.PageSize {
			break
		}
		if limit > 0 && len(all) >= limit {
			break
		}

		last := resp.Results[len(resp.Results)-1]
		pageReq.Set(cursorParam, strconv.FormatInt(last.TrackID, 10))
	}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// fetchPackName looks up a trackpack's name, falling back to
// "Trackpack_<id>" on any failure.
func (m *Manager) fetchPackName(ctx context.Context, packID int64) string {
	var resp dto.JSONPackPage
	err := m.withRetry(ctx, "trackpack info", func() error {
		resp = dto.JSONPackPage{}
		return m.httpClient.GetJSON(ctx, m.exchange.PackInfoRequest(packID).URL(), &resp)
	})
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not fetch trackpack name: %v", err), Level: LevelWarning})
		return dto.DefaultPackName(packID)
	}
	return resp.PackName(packID)
}
