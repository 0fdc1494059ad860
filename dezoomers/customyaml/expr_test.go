package customyaml

import "testing"

func TestEvalExprArithmetic(t *testing.T) {
	vars := map[string]float64{"x": 3, "y": 4}
	cases := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"x * 2", 6},
		{"x + y * 2", 11},
		{"(x + y) * 2", 14},
		{"10 / 2 - 1", 4},
		{"10 % 3", 1},
		{"-x + 5", 2},
	}
	for _, c := range cases {
		got, err := evalExpr(c.expr, vars)
		if err != nil {
			t.Fatalf("evalExpr(%q): %v", c.expr, err)
		}
		if got != c.want {
			t.Fatalf("evalExpr(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalExprErrors(t *testing.T) {
	vars := map[string]float64{"x": 1}
	for _, expr := range []string{"x +", "(1 + 2", "1 / 0", "unknown_var"} {
		if _, err := evalExpr(expr, vars); err == nil {
			t.Fatalf("evalExpr(%q): expected error", expr)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	vars := map[string]float64{"x": 3, "y": 42}
	got, err := expandTemplate("tiles/{{x}}/{{y:04}}.jpg", vars)
	if err != nil {
		t.Fatal(err)
	}
	want := "tiles/3/0042.jpg"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
