package render

import (
	"strings"
	"testing"
)

func schemeChannels(s ColorScheme) map[string]RGB {
	return map[string]RGB{
		"primary":    s.Primary,
		"secondary":  s.Secondary,
		"accent":     s.Accent,
		"dark":       s.Dark,
		"medium":     s.Medium,
		"light":      s.Light,
		"bg":         s.Background,
		"white":      s.White,
	}
}

func TestResolveSchemeAllThemesInRange(t *testing.T) {
	for _, theme := range Themes() {
		scheme := ResolveScheme(theme, nil)
		for name, color := range schemeChannels(scheme) {
			for _, channel := range []int{color.R, color.G, color.B} {
				if channel < 0 || channel > 255 {
					t.Fatalf("theme %s channel %s out of range: %+v", theme, name, color)
				}
			}
		}
	}
}

func TestResolveSchemeProfessionalPrimary(t *testing.T) {
	scheme := ResolveScheme(ThemeProfessional, nil)
	if scheme.Primary != (RGB{13, 60, 97}) {
		t.Fatalf("expected professional primary (13,60,97), got %+v", scheme.Primary)
	}
}

func TestResolveSchemeUnknownThemeFallsBack(t *testing.T) {
	got := ResolveScheme(Theme("neon-zebra"), nil)
	want := ResolveScheme(ThemeProfessional, nil)
	if got != want {
		t.Fatalf("expected fallback to professional, got %+v", got)
	}
}

func TestResolveSchemeCustomColors(t *testing.T) {
	override := &ColorOverride{
		Primary:    "#ff0000",
		Secondary:  "#00ff00",
		Accent:     "#0000ff",
		Background: "#ffffff",
	}
	for _, theme := range []Theme{ThemeProfessional, ThemeLuxury, Theme("nonsense")} {
		scheme := ResolveScheme(theme, override)
		if scheme.Primary != (RGB{255, 0, 0}) {
			t.Fatalf("theme %s: expected primary (255,0,0), got %+v", theme, scheme.Primary)
		}
		if scheme.Secondary != (RGB{0, 255, 0}) {
			t.Fatalf("theme %s: expected secondary (0,255,0), got %+v", theme, scheme.Secondary)
		}
		if scheme.Accent != (RGB{0, 0, 255}) {
			t.Fatalf("theme %s: expected accent (0,0,255), got %+v", theme, scheme.Accent)
		}
		if scheme.Dark != neutralDark || scheme.Medium != neutralMedium || scheme.Light != neutralLight || scheme.White != pureWhite {
			t.Fatalf("theme %s: neutral channels must ignore overrides, got %+v", theme, scheme)
		}
	}
}

func TestResolveSchemeMalformedHexFailsClosed(t *testing.T) {
	override := &ColorOverride{
		Primary:    "#zzxxyy",
		Secondary:  "#12345",
		Accent:     "",
		Background: "not-a-color",
	}
	scheme := ResolveScheme(ThemeModern, override)
	black := RGB{}
	for _, color := range []RGB{scheme.Primary, scheme.Secondary, scheme.Accent, scheme.Background} {
		if color != black {
			t.Fatalf("expected malformed hex to resolve black, got %+v", color)
		}
	}
}

func TestParseHexRoundTrip(t *testing.T) {
	for _, input := range []string{"#ff0000", "#0D3C61", "#abcdef", "#000000", "#FFFFFF"} {
		color, ok := ParseHex(input)
		if !ok {
			t.Fatalf("expected %q to parse", input)
		}
		if got, want := color.Hex(), strings.ToLower(input); got != want {
			t.Fatalf("round trip mismatch: %q -> %q", input, got)
		}
	}
}

func TestParseHexRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "#", "#fff", "#ggg000", "#1234567", "red"} {
		if _, ok := ParseHex(input); ok {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestResolveSchemeDeterministic(t *testing.T) {
	override := &ColorOverride{Primary: "#102030", Secondary: "#405060", Accent: "#708090", Background: "#a0b0c0"}
	if ResolveScheme(ThemeLuxury, override) != ResolveScheme(ThemeLuxury, override) {
		t.Fatal("expected identical scheme for identical input")
	}
	if ResolveScheme(ThemeLuxury, nil) != ResolveScheme(ThemeLuxury, nil) {
		t.Fatal("expected identical scheme for identical theme")
	}
}
