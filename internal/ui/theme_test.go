package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Dayfox" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Dayfox]", names)
	}

	names[0] = "mutated"
	if ThemeNames()[0] != "Nightfox" {
		t.Fatalf("ThemeNames() exposes internal order")
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Dayfox"); got != "Nightfox" {
		t.Fatalf("NextTheme(Dayfox) = %q, want Nightfox", got)
	}
	if got := NextTheme("Unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(Unknown) = %q, want Nightfox", got)
	}
}

func TestGetTheme(t *testing.T) {
	day := GetTheme("Dayfox")
	if day.Name != "Dayfox" {
		t.Fatalf("GetTheme(Dayfox).Name = %q, want Dayfox", day.Name)
	}
	if got := GetTheme("missing"); got.Name != "Nightfox" {
		t.Fatalf("GetTheme(missing).Name = %q, want Nightfox", got.Name)
	}
}

func TestThemesDefineEveryColor(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		colors := map[string]string{
			"Background": th.Background, "Surface": th.Surface,
			"SelectionBg": th.SelectionBg, "SelectionText": th.SelectionText,
			"BorderFocus": th.BorderFocus, "CursorLine": th.CursorLine,
			"LineNumber": th.LineNumber, "Modified": th.Modified,
			"Text": th.Text, "Muted": th.Muted, "Faint": th.Faint, "Accent": th.Accent,
			"Success": th.Success, "Warning": th.Warning, "Danger": th.Danger, "Info": th.Info,
		}
		for field, value := range colors {
			if len(value) != 7 || value[0] != '#' {
				t.Fatalf("%s.%s = %q, want #rrggbb", name, field, value)
			}
		}
	}
}
