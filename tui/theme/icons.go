package theme

import "os"

// Nerd Font Icons (Private Constants)
const (
	nerdIconDirectory = "\uf07b"     // fa-folder (U+F07B)
	nerdIconFile      = "\uf15b"     // fa-file (U+F15B)
	nerdIconVolume    = "\U000f02ca" // md-harddisk (U+F02CA)
	nerdIconUp        = "\U000f005d" // md-arrow_up (U+F005D)
)

// Plain fallbacks for terminals without a Nerd Font.
const (
	asciiIconDirectory = "▸"
	asciiIconFile      = "·"
	asciiIconVolume    = "◆"
	asciiIconUp        = "↑"
)

// Icons used when rendering listings.
var (
	IconDirectory string
	IconFile      string
	IconVolume    string
	IconUp        string
)

func init() {
	SetNerdFonts(os.Getenv("POLLWATCH_ICONS") == "nerd")
}

// SetNerdFonts switches between Nerd Font glyphs and plain symbols.
func SetNerdFonts(enabled bool) {
	if enabled {
		IconDirectory, IconFile, IconVolume, IconUp = nerdIconDirectory, nerdIconFile, nerdIconVolume, nerdIconUp
		return
	}
	IconDirectory, IconFile, IconVolume, IconUp = asciiIconDirectory, asciiIconFile, asciiIconVolume, asciiIconUp
}
