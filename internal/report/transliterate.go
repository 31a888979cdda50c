package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 分解后仍非ASCII的常见字符
var asciiFallbacks = map[rune]string{
	'ß': "ss", 'Æ': "AE", 'æ': "ae", 'Œ': "OE", 'œ': "oe",
	'Ø': "O", 'ø': "o", 'Ł': "L", 'ł': "l", 'Đ': "D", 'đ': "d",
	'Þ': "Th", 'þ': "th", 'ı': "i",
	'‘': "'", '’': "'", '‚': "'", '“': "\"", '”': "\"", '„': "\"",
	'–': "-", '—': "-", '‐': "-", '…': "...", '•': "*",
	'€': "EUR", '£': "GBP", '¥': "JPY", '©': "(c)", '®': "(R)", '™': "TM",
	' ': " ",
}

// Replacement 无法转写字符的占位符
const Replacement = "?"

// Transliterate 将文本规范为可打印ASCII：去掉变音符号，映射常见字符，
// 其余非ASCII字符替换为 "?"，控制字符替换为空格
func Transliterate(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		case r < 0x80:
			b.WriteRune(r)
		default:
			if repl, ok := asciiFallbacks[r]; ok {
				b.WriteString(repl)
			} else {
				b.WriteString(Replacement)
			}
		}
	}
	return b.String()
}
