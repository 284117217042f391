package playlist

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tmx-tools/tmx-downloader/internal/model"
)

// Creator generates playlist content for a set of downloaded tracks.
//
// Track entries are file names relative to the pack folder, so the
// playlist is written into the same folder as the tracks.
type Creator struct {
	format model.PlaylistFormat
}

// NewCreator creates a new Creator for format.
func NewCreator(format model.PlaylistFormat) *Creator {
	return &Creator{format: format}
}

// Format returns the format the Creator writes.
func (c *Creator) Format() model.PlaylistFormat {
	return c.format
}

// Create generates the playlist for tracks, in the given order.
func (c *Creator) Create(pack *model.TrackPack, tracks []*model.Track) ([]byte, error) {
	switch c.format {
	case model.PlaylistFormatCSV:
		return createCSV(tracks)
	case model.PlaylistFormatMatchSettings:
		return createMatchSettings(pack, tracks)
	default:
		return createTXT(tracks), nil
	}
}

// createTXT generates one file name per line.
func createTXT(tracks []*model.Track) []byte {
	var sb strings.Builder
	for _, track := range tracks {
		sb.WriteString(track.FileName())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// createCSV generates:
//
//	TrackId,TrackName,File
//	123,A01,Track_A01.Challenge.Gbx
func createCSV(tracks []*model.Track) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"TrackId", "TrackName", "File"}); err != nil {
		return nil, err
	}
	for _, track := range tracks {
		record := []string{strconv.FormatInt(track.ID, 10), track.Name, track.FileName()}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type matchSettings struct {
	XMLName    xml.Name         `xml:"playlist"`
	GameInfos  gameInfos        `xml:"gameinfos"`
	Filter     filter           `xml:"filter"`
	StartIndex int              `xml:"startindex"`
	Challenges []challengeEntry `xml:"challenge"`
}

type gameInfos struct {
	GameMode        int `xml:"game_mode"`
	TimeAttackLimit int `xml:"time_attack_limit"`
}

type filter struct {
	IsLan          int `xml:"is_lan"`
	IsInternet     int `xml:"is_internet"`
	IsSolo         int `xml:"is_solo"`
	IsHotseat      int `xml:"is_hotseat"`
	SortIndex      int `xml:"sort_index"`
	RandomMapOrder int `xml:"random_map_order"`
}

type challengeEntry struct {
	File  string `xml:"file"`
	Ident string `xml:"ident"`
}

// createMatchSettings generates a time attack MatchSettings file. Entries
// are "<pack folder>/<file name>", the layout expected when the pack folder
// is copied into the server's Tracks directory.
func createMatchSettings(pack *model.TrackPack, tracks []*model.Track) ([]byte, error) {
	ms := matchSettings{
		GameInfos: gameInfos{GameMode: 1, TimeAttackLimit: 300000},
		Filter:    filter{IsLan: 1, IsInternet: 1, SortIndex: 1000},
	}

	folder := filepath.Base(pack.Path)
	for _, track := range tracks {
		ms.Challenges = append(ms.Challenges, challengeEntry{File: path.Join(folder, track.FileName())})
	}

	data, err := xml.MarshalIndent(ms, "", "\t")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}
