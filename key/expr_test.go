package key

import "testing"

var exprTestKeys = []string{"test", "test1", "test2", "test3", "test4", "test5", "test 6"}

func TestMatchesKeysInExpr(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"test", true},
		{"'test'", true},
		{"'test 6' || test7", true},
		{"'test_6' && test3", false},
		{`"test 6" || test7`, true},
		{`"test 6" && test3`, true},

		{"test1 || test", true},
		{"test1 || test6", true},
		{"test6 || test7", false},

		{"test1 || test || test2", true},
		{"test1 || test6 || test7", true},
		{"test6 || test7 || test8", false},

		{"test1 && test", true},
		{"test1 && test6", false},
		{"test6 && test7", false},

		{"test1 && test && test2", true},
		{"test1 && test2 && test7", false},

		// Juxtaposition is conjunction.
		{"test1 test", true},
		{"test1 test6", false},

		{"(test1)", true},
		{"(test1 test6)", false},

		{"test1     test2 ", true},
		{"test1    && test2 ", true},
		{"(test1   ||  test3)       &&  test6 ", false},
		{"(test1  ||     test6 || test7  )     && (test4 || test5) && test3 ", true},
		{"(test1 && test6 && test7) || (test4 && test5) || test3 ", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MatchesKeysInExpr(exprTestKeys, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MatchesKeysInExpr(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchesKeysInExpr_Errors(t *testing.T) {
	inputs := []string{
		"test1 *213 ",
		"|213 test",
		"",
		"(test1",
		"'unterminated",
		"test1 &&",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if _, err := MatchesKeysInExpr(exprTestKeys, input); err == nil {
				t.Errorf("expected parse error for %q", input)
			}
		})
	}
}

func TestParseExpression_Reuse(t *testing.T) {
	expr, err := ParseExpression("alpha || beta")
	if err != nil {
		t.Fatal(err)
	}
	if !expr.MatchesKeys([]string{"beta"}) {
		t.Error("beta should match")
	}
	if expr.MatchesKeys([]string{"gamma"}) {
		t.Error("gamma should not match")
	}
}
