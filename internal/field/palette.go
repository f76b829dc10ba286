package field

// RGB is an 8-bit per channel colour.
type RGB struct {
	R, G, B uint8
}

// Hex builds an RGB from a 0xRRGGBB literal.
func Hex(v uint32) RGB {
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Float32 returns the colour as normalized channels for GPU upload.
func (c RGB) Float32() (r, g, b float32) {
	return float32(c.R) / 255.0, float32(c.G) / 255.0, float32(c.B) / 255.0
}

var (
	ChampagneGold   = Hex(0xffd966)
	DeepForestGreen = Hex(0x03180a)
	GemRed          = Hex(0x990000)
)

// Palette is the set of ornament colours particles pick from.
var Palette = [...]RGB{ChampagneGold, DeepForestGreen, GemRed}
