// Package game presents the treasure hunt: the riddle panel and the reaction
// to each answer the game server checks.
package game

import (
	"embed"
	"path"
	"strings"
	"sync"

	"github.com/ZaguanLabs/huntlay"
	"github.com/leonelquinteros/gotext"
)

//go:embed locales/*.po
var localeFS embed.FS

var (
	catalogsOnce sync.Once
	catalogs     map[string]*gotext.Po
)

func loadCatalogs() {
	catalogs = make(map[string]*gotext.Po)
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			continue
		}
		po := gotext.NewPo()
		po.Parse(data)
		catalogs[strings.TrimSuffix(e.Name(), ".po")] = po
	}
}

func catalog(lang string) *gotext.Po {
	catalogsOnce.Do(loadCatalogs)
	if po, ok := catalogs[huntlay.BaseOf(lang)]; ok {
		return po
	}
	return catalogs[huntlay.BaseLang]
}

// ToggleLabels are the texts of the riddle show/hide control.
type ToggleLabels struct {
	Show string
	Hide string
}

// Labels returns the riddle toggle labels for lang. Languages without a
// catalog get the base language labels.
func Labels(lang string) ToggleLabels {
	po := catalog(lang)
	return ToggleLabels{
		Show: po.Get("RIDDLE_SHOW"),
		Hide: po.Get("RIDDLE_HIDE"),
	}
}

// For returns the label matching the panel state.
func (l ToggleLabels) For(expanded bool) string {
	if expanded {
		return l.Hide
	}
	return l.Show
}
