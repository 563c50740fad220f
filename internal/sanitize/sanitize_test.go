package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "  How do I install Go?  ", "How do I install Go?"},
		{"script removed", `Nice<script>alert(1)</script> course`, "Nice course"},
		{"tags stripped", `<b>bold</b> and <a href="javascript:x">link</a>`, "bold and link"},
		{"entities kept readable", "Tom & Jerry's", "Tom & Jerry's"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Text(tc.input))
		})
	}
}

func TestHTML_KeepsFormattingDropsScripts(t *testing.T) {
	out := HTML(`<p onclick="steal()">Learn <strong>Go</strong></p><script>x()</script><a href="javascript:alert(1)">bad</a>`)
	assert.Contains(t, out, "<strong>Go</strong>")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestTexts_DropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, Texts([]string{" one ", "<i></i>", "two"}))
}
