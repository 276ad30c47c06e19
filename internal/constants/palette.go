package constants

// Palette is the presentation triple attached to an event.
type Palette struct {
	Color  string
	Color1 string
	Color2 string
}

var (
	ValidatedPalette = Palette{Color: "#0f54bc", Color1: "#a8c1ff", Color2: "#4da6fb"}
	PendingPalette   = Palette{Color: "#8c8c8c", Color1: "#e0e0e0", Color2: "#bdbdbd"}
)

// PaletteFor returns the palette matching an event's validation status.
func PaletteFor(validated bool) Palette {
	if validated {
		return ValidatedPalette
	}
	return PendingPalette
}
