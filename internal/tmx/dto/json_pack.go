package dto

import "fmt"

// JSONPack is one entry of a trackpack search page.
type JSONPack struct {
	PackID   int64  `json:"PackId"`
	PackName string `json:"PackName"`
}

// JSONPackPage is one page of /api/trackpacks results.
type JSONPackPage struct {
	Results []JSONPack `json:"Results"`
	More    bool       `json:"More"`
}

// PackName returns the name of the first result, or "Trackpack_<id>" when
// the page is empty or the name is blank.
func (p *JSONPackPage) PackName(packID int64) string {
	if p != nil && len(p.Results) > 0 && p.Results[0].PackName != "" {
		return p.Results[0].PackName
	}
	return DefaultPackName(packID)
}

// DefaultPackName is the folder name used when a pack's name is unknown.
func DefaultPackName(packID int64) string {
	return fmt.Sprintf("Trackpack_%d", packID)
}
