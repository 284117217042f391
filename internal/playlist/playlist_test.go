package playlist

import (
	"encoding/csv"
	"encoding/xml"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmx-tools/tmx-downloader/internal/model"
)

func createTestPack() (*model.TrackPack, []*model.Track) {
	cfg := &model.PathConfig{
		DownloadsPath:  filepath.FromSlash("/tmx/downloads"),
		TrackpacksPath: filepath.FromSlash("/tmx/packs/{pack}"),
	}
	pack := model.NewTrackPack(5, "Speed Pack", cfg)
	trackCfg := &model.TrackConfig{FileNameFormat: model.DefaultFileNameFormat}

	tracks := []*model.Track{
		model.NewTrack(pack, 1, "A01", trackCfg),
		model.NewTrack(pack, 2, `Comma, "quoted"`, trackCfg),
	}
	pack.Tracks = tracks
	return pack, tracks
}

func TestCreator_TXT(t *testing.T) {
	pack, tracks := createTestPack()

	content, err := NewCreator(model.PlaylistFormatTXT).Create(pack, tracks)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := "Track_A01.Challenge.Gbx\nTrack_Comma, _quoted_.Challenge.Gbx\n"
	if string(content) != want {
		t.Errorf("TXT playlist = %q, want %q", content, want)
	}
}

func TestCreator_CSV(t *testing.T) {
	pack, tracks := createTestPack()

	content, err := NewCreator(model.PlaylistFormatCSV).Create(pack, tracks)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(content))).ReadAll()
	if err != nil {
		t.Fatalf("CSV output does not parse: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if strings.Join(records[0], ",") != "TrackId,TrackName,File" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][0] != "2" || records[2][1] != `Comma, "quoted"` {
		t.Errorf("record = %v", records[2])
	}
}

func TestCreator_MatchSettings(t *testing.T) {
	pack, tracks := createTestPack()

	content, err := NewCreator(model.PlaylistFormatMatchSettings).Create(pack, tracks)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(string(content), "<?xml") {
		t.Error("MatchSettings should start with an XML header")
	}

	var parsed struct {
		Files []string `xml:"challenge>file"`
	}
	if err := xml.Unmarshal(content, &parsed); err != nil {
		t.Fatalf("MatchSettings does not parse: %v", err)
	}
	if len(parsed.Files) != 2 {
		t.Fatalf("got %d challenges, want 2", len(parsed.Files))
	}
	if parsed.Files[0] != "Speed Pack/Track_A01.Challenge.Gbx" {
		t.Errorf("first challenge = %q", parsed.Files[0])
	}
}

func TestCreator_Empty(t *testing.T) {
	pack, _ := createTestPack()

	content, err := NewCreator(model.PlaylistFormatTXT).Create(pack, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(content) != 0 {
		t.Errorf("empty TXT playlist = %q, want empty", content)
	}
}
