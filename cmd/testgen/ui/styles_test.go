package ui

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")

	t.Setenv("TESTGEN_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when TESTGEN_DARK_MODE=1")
	}

	t.Setenv("TESTGEN_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when TESTGEN_DARK_MODE is unset")
	}
}

func TestDetectTheme_ColorFGBG(t *testing.T) {
	t.Setenv("TESTGEN_DARK_MODE", "")

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Error("expected dark theme for black background")
	}

	t.Setenv("COLORFGBG", "0;15")
	if DetectTheme().IsDark {
		t.Error("expected light theme for white background")
	}
}

func TestThemeByName(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("TESTGEN_DARK_MODE", "")

	if !ThemeByName("dark").IsDark {
		t.Error("dark should be dark")
	}
	if ThemeByName("LIGHT").IsDark {
		t.Error("light should be light")
	}
	if ThemeByName("auto").IsDark {
		t.Error("auto should fall back to detection (light here)")
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if s.RenderDivider(0) == "" {
		t.Error("divider should never be empty")
	}
}

func TestCodeBlock(t *testing.T) {
	if got := CodeBlock("x := 1"); got != "```\nx := 1\n```" {
		t.Errorf("unexpected block: %q", got)
	}
	if got := CodeBlock("a ``` b"); got != "````\na ``` b\n````" {
		t.Errorf("inner fence not escaped: %q", got)
	}
}
