package animator

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ClipKey names a guide animation state.
type ClipKey string

const (
	Walk    ClipKey = "walk"
	Waiting ClipKey = "waiting"
	Happy   ClipKey = "happy"
	Sad     ClipKey = "sad"
)

// ClipSource lists the candidate URIs of one clip, in preference order.
type ClipSource []string

// ClipTable maps animation states to their clips.
type ClipTable map[ClipKey]ClipSource

const videoDir = "/static/assets/videos/"

// DefaultClipTable returns the guide clips shipped with the game.
func DefaultClipTable() ClipTable {
	return ClipTable{
		Walk:    {videoDir + "Pirate_Transition_Walking_To_Waiting.webm"},
		Waiting: {videoDir + "Pirate_Transition_Walking_To_Waiting.webm"},
		Happy:   {videoDir + "Pirate_Transition_Waiting_to_Happy.webm"},
		Sad:     {videoDir + "Video_Transition_Waiting_to_Sad.webm"},
	}
}

type clipFile struct {
	Clips map[string][]string `yaml:"clips"`
}

// LoadClipTable reads a clip table from YAML:
//
//	clips:
//	  walk:
//	    - /static/assets/videos/walk.webm
//	    - /static/assets/videos/walk.mp4
func LoadClipTable(r io.Reader) (ClipTable, error) {
	var f clipFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode clip table: %w", err)
	}
	if len(f.Clips) == 0 {
		return nil, fmt.Errorf("clip table has no clips")
	}

	table := make(ClipTable, len(f.Clips))
	for key, srcs := range f.Clips {
		if len(srcs) == 0 {
			return nil, fmt.Errorf("clip %q has no sources", key)
		}
		table[ClipKey(key)] = append(ClipSource(nil), srcs...)
	}
	return table, nil
}

// LoadClipTableFile reads a clip table from a YAML file.
func LoadClipTableFile(path string) (ClipTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadClipTable(f)
}
