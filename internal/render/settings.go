package render

// Theme selects the colour palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings is the read-only presentation configuration. It is passed by
// value into render calls and never stored on messages.
type Settings struct {
	Theme          Theme `json:"theme"`
	AutoScroll     bool  `json:"auto_scroll"`
	ShowTimestamps bool  `json:"show_timestamps"`
	EnableSounds   bool  `json:"enable_sounds"`
	CompactMode    bool  `json:"compact_mode"`
}

// DefaultSettings returns the settings a fresh client starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:          ThemeLight,
		AutoScroll:     true,
		ShowTimestamps: true,
		EnableSounds:   false,
		CompactMode:    false,
	}
}
