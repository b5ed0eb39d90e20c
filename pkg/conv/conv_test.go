package conv

import (
	"reflect"
	"testing"
)

func TestConfigGet(t *testing.T) {
	cfg := map[string]any{
		"expr":  "item.score > 0",
		"n":     5,
		"n_f":   float64(7),
		"ids":   []any{"p1", 2.0, true},
		"wrong": 3,
	}

	if got := ConfigGet(cfg, "expr", ""); got != "item.score > 0" {
		t.Errorf("ConfigGet(expr) = %q", got)
	}
	if got := ConfigGet(cfg, "wrong", "def"); got != "def" {
		t.Errorf("ConfigGet on type mismatch = %q, want default", got)
	}
	if got := ConfigGet[string](nil, "expr", "def"); got != "def" {
		t.Errorf("ConfigGet(nil) = %q", got)
	}
	if got := ConfigGetInt(cfg, "n", 0); got != 5 {
		t.Errorf("ConfigGetInt(n) = %d", got)
	}
	if got := ConfigGetInt(cfg, "n_f", 0); got != 7 {
		t.Errorf("ConfigGetInt(n_f) = %d", got)
	}
	if got := ConfigGetInt(cfg, "missing", 9); got != 9 {
		t.Errorf("ConfigGetInt(missing) = %d", got)
	}
	if got := SliceAnyToString(cfg["ids"]); !reflect.DeepEqual(got, []string{"p1", "2", "1"}) {
		t.Errorf("SliceAnyToString = %v", got)
	}
	if got := SliceAnyToString("not a slice"); got != nil {
		t.Errorf("SliceAnyToString(string) = %v, want nil", got)
	}
}
