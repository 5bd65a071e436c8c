package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Theme selects one of the built-in invoice palettes.
type Theme string

const (
	ThemeProfessional       Theme = "professional"
	ThemeModern             Theme = "modern"
	ThemeLuxury             Theme = "luxury"
	ThemeMinimal            Theme = "minimal"
	ThemeElegantBlackGold   Theme = "elegant-black-gold"
	ThemeMinimalWhiteSilver Theme = "minimal-white-silver"
	ThemeIvorySerifClassic  Theme = "ivory-serif-classic"
	ThemeModernRoseGold     Theme = "modern-rose-gold"
)

// Themes returns the supported theme identifiers in a stable order.
func Themes() []Theme {
	return []Theme{
		ThemeProfessional,
		ThemeModern,
		ThemeLuxury,
		ThemeMinimal,
		ThemeElegantBlackGold,
		ThemeMinimalWhiteSilver,
		ThemeIvorySerifClassic,
		ThemeModernRoseGold,
	}
}

// RGB is one resolved color, each channel in [0,255].
type RGB struct {
	R int
	G int
	B int
}

// Hex renders the color as a lowercase #rrggbb string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorScheme is the eight-channel palette resolved once per render pass.
// It is never mutated after resolution.
type ColorScheme struct {
	Primary    RGB
	Secondary  RGB
	Accent     RGB
	Dark       RGB
	Medium     RGB
	Light      RGB
	Background RGB
	White      RGB
}

// ColorOverride replaces the four brand channels of a scheme. The neutral
// channels (dark, medium, light, white) are never overridable.
type ColorOverride struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

var (
	neutralDark   = RGB{33, 37, 41}
	neutralMedium = RGB{108, 117, 125}
	neutralLight  = RGB{222, 226, 230}
	pureWhite     = RGB{255, 255, 255}
)

var palettes = map[Theme]ColorScheme{
	ThemeProfessional: {
		Primary:    RGB{13, 60, 97},
		Secondary:  RGB{52, 73, 94},
		Accent:     RGB{41, 128, 185},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{236, 240, 241},
		Background: RGB{248, 249, 250},
		White:      pureWhite,
	},
	ThemeModern: {
		Primary:    RGB{79, 70, 229},
		Secondary:  RGB{99, 102, 241},
		Accent:     RGB{236, 72, 153},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{224, 231, 255},
		Background: RGB{250, 250, 255},
		White:      pureWhite,
	},
	ThemeLuxury: {
		Primary:    RGB{120, 53, 15},
		Secondary:  RGB{146, 64, 14},
		Accent:     RGB{217, 119, 6},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{254, 243, 199},
		Background: RGB{255, 251, 235},
		White:      pureWhite,
	},
	ThemeMinimal: {
		Primary:    RGB{17, 24, 39},
		Secondary:  RGB{55, 65, 81},
		Accent:     RGB{107, 114, 128},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{229, 231, 235},
		Background: pureWhite,
		White:      pureWhite,
	},
	ThemeElegantBlackGold: {
		Primary:    RGB{17, 17, 17},
		Secondary:  RGB{38, 38, 38},
		Accent:     RGB{212, 175, 55},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{231, 229, 228},
		Background: RGB{250, 250, 249},
		White:      pureWhite,
	},
	ThemeMinimalWhiteSilver: {
		Primary:    RGB{71, 85, 105},
		Secondary:  RGB{100, 116, 139},
		Accent:     RGB{148, 163, 184},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{241, 245, 249},
		Background: pureWhite,
		White:      pureWhite,
	},
	ThemeIvorySerifClassic: {
		Primary:    RGB{87, 65, 47},
		Secondary:  RGB{120, 98, 79},
		Accent:     RGB{166, 124, 82},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{240, 233, 220},
		Background: RGB{255, 253, 247},
		White:      pureWhite,
	},
	ThemeModernRoseGold: {
		Primary:    RGB{183, 110, 121},
		Secondary:  RGB{201, 134, 143},
		Accent:     RGB{232, 180, 184},
		Dark:       neutralDark,
		Medium:     neutralMedium,
		Light:      RGB{252, 231, 233},
		Background: RGB{255, 250, 250},
		White:      pureWhite,
	},
}

// ResolveScheme maps a theme identifier plus optional overrides to a
// concrete palette. Unknown themes fall back to professional. When an
// override is present its four hex strings win over the theme for the
// brand channels; the neutral channels take fixed defaults.
// Pure and deterministic for identical input.
func ResolveScheme(theme Theme, override *ColorOverride) ColorScheme {
	if override != nil {
		return ColorScheme{
			Primary:    hexOrBlack(override.Primary),
			Secondary:  hexOrBlack(override.Secondary),
			Accent:     hexOrBlack(override.Accent),
			Background: hexOrBlack(override.Background),
			Dark:       neutralDark,
			Medium:     neutralMedium,
			Light:      neutralLight,
			White:      pureWhite,
		}
	}
	scheme, ok := palettes[theme]
	if !ok {
		scheme = palettes[ThemeProfessional]
	}
	return scheme
}

// ParseHex parses a #RRGGBB string (leading # optional, case
// insensitive). The second return value reports whether the input was
// well formed.
func ParseHex(value string) (RGB, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) != 6 {
		return RGB{}, false
	}
	channels := [3]int{}
	for i := range channels {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return RGB{}, false
		}
		channels[i] = int(n)
	}
	return RGB{channels[0], channels[1], channels[2]}, true
}

// hexOrBlack fails closed: malformed hex resolves to black.
func hexOrBlack(value string) RGB {
	color, ok := ParseHex(value)
	if !ok {
		return RGB{}
	}
	return color
}
