package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two.gpl")
	body := "GIMP Palette\nName: Two\nColumns: 2\n# comment\n  0   0   0\tBlack\n255 255 255\tWhite\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Two" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}
	if got := p.Lookup(0.5); got != (RGB{127, 127, 127}) {
		t.Errorf("Lookup(0.5) = %v, want mid grey", got)
	}
	if got := p.Lookup(2); got != (RGB{255, 255, 255}) {
		t.Errorf("Lookup(2) = %v, want white", got)
	}
}

func TestLoadGPL_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\n1 2 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("single-color palette accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestDefaultTheme(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	th := New(p)
	if th.Accent() == th.Muted() {
		t.Error("accent and muted roles share a color")
	}
	if got := string(th.Color(0)); got != "#0d0887" {
		t.Errorf("Color(0) = %s, want #0d0887", got)
	}
}

func TestReadGPL(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
		colors  int
	}{
		{"named", "GIMP Palette\nName: Ink\nColumns: 0\n1 2 3 a\n4 5 6 b\n", false, "Ink", 2},
		{"unnamed", "# leading comment\nGIMP Palette\n1 2 3\n4 5 6\n7 8 9\n", false, "", 3},
		{"no magic", "Name: Ink\n1 2 3\n4 5 6\n", true, "", 0},
		{"out of range", "GIMP Palette\n1 2 3\n4 256 6\n", true, "", 0},
		{"short line", "GIMP Palette\n1 2 3\n4 5\n", true, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ReadGPL(strings.NewReader(tc.body))
			if tc.wantErr {
				if err == nil {
					t.Errorf("ReadGPL accepted %q", tc.body)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name != tc.want || len(p.Colors) != tc.colors {
				t.Errorf("palette = %q with %d colors, want %q with %d", p.Name, len(p.Colors), tc.want, tc.colors)
			}
		})
	}
}

func TestLoadGPL_NameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\n0 0 0\n255 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "ember" {
		t.Errorf("Name = %q, want ember", p.Name)
	}
}
