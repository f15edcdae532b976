package tokens

import "testing"

func TestEstimateByWords(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t  ", 0},
		{"single word", "hello", 2},       // ceil(1 * 1.3)
		{"ten words", "a b c d e f g h i j", 13},
		{"collapses runs of whitespace", "one   two\n\nthree", 4}, // ceil(3 * 1.3)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateByWords(tc.text); got != tc.want {
				t.Errorf("EstimateByWords(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestWordCountEstimator(t *testing.T) {
	var e WordCountEstimator
	if got := e.Estimate("four words right here"); got != 6 {
		t.Errorf("Estimate = %d, want 6", got)
	}
}

func TestEstimateMonotonicInLength(t *testing.T) {
	var e WordCountEstimator
	short := e.Estimate("small text")
	long := e.Estimate("a considerably longer text with many more words inside it")
	if long <= short {
		t.Errorf("longer text estimated at %d tokens, shorter at %d", long, short)
	}
}
