// Package dto holds the JSON shapes returned by the exchange API.
package dto

import (
	"fmt"

	"github.com/tmx-tools/tmx-downloader/internal/model"
)

// JSONTrack is one entry of a track search page.
type JSONTrack struct {
	TrackID   int64  `json:"TrackId"`
	TrackName string `json:"TrackName"`
}

// JSONTrackPage is one page of /api/tracks results.
type JSONTrackPage struct {
	Results []JSONTrack `json:"Results"`
	More    bool        `json:"More"`
}

// ToTrack converts JSONTrack to a model.Track placed in pack.
func (jt JSONTrack) ToTrack(pack *model.TrackPack, cfg *model.TrackConfig) *model.Track {
	name := jt.TrackName
	if name == "" {
		name = fmt.Sprintf("Track_%d", jt.TrackID)
	}
	return model.NewTrack(pack, jt.TrackID, name, cfg)
}

// FromTracks converts tracks back to their API representation, for the
// metadata file written next to the downloads.
func FromTracks(tracks []*model.Track) []JSONTrack {
	out := make([]JSONTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, JSONTrack{TrackID: t.ID, TrackName: t.Name})
	}
	return out
}
