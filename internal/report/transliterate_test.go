package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Smith", "John Smith"},
		{"José Núñez", "Jose Nunez"},
		{"Søren Kierkegaard", "Soren Kierkegaard"},
		{"Łukasz Straße", "Lukasz Strasse"},
		{"Zoë “Zee” O’Neil", "Zoe \"Zee\" O'Neil"},
		{"ﬁnance", "finance"},
		{"✅ Wages Match!", "? Wages Match!"},
		{"李雷", "??"},
		{"tab\tand\nnewline", "tab and newline"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Transliterate(tt.in)
			assert.Equal(t, tt.want, got)
			for _, r := range got {
				assert.Less(t, r, rune(0x80))
			}
		})
	}
}
