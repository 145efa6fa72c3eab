package common

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nullTokenPattern = regexp.MustCompile(`(?i)\b(?:null|undefined)\b`)
	blankRunPattern  = regexp.MustCompile(`[ \t]{2,}`)

	// NFD 無法拆解的字母
	letterReplacer = strings.NewReplacer(
		"œ", "oe", "Œ", "OE",
		"æ", "ae", "Æ", "AE",
		"ß", "ss",
		"ø", "o", "Ø", "O",
		"ł", "l", "Ł", "L",
		"đ", "d", "Đ", "D",
		"ı", "i",
		"‘", "'", "’", "'",
		"“", "\"", "”", "\"",
		"«", "\"", "»", "\"",
		"\u00a0", " ",
	)
)

// isAccentMark 判斷是否為需移除的重音符號，保留 emoji 變體選擇符
func isAccentMark(r rune) bool {
	if r >= 0xFE00 && r <= 0xFE0F {
		return false
	}
	if r >= 0xE0100 && r <= 0xE01EF {
		return false
	}
	return unicode.Is(unicode.Mn, r)
}

// isStrayControl 判斷是否為需移除的控制字元，保留換行與 tab
func isStrayControl(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	}
	return unicode.IsControl(r)
}

func newTransliterator() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.Predicate(isAccentMark)),
		runes.Remove(runes.Predicate(isStrayControl)),
		norm.NFC,
	)
}

// NormalizeText 將文字轉為顯示用的標準形式。
// 移除 null/undefined 字樣與控制字元，將重音字母轉為 ASCII，保留 ✅ ⚠️ ❌ 等符號。
// 任何內部錯誤都返回原字串。
func NormalizeText(s string) (out string) {
	if s == "" {
		return s
	}
	defer func() {
		if r := recover(); r != nil {
			LogWarn("Text normalization recovered from panic", zap.Any("panic", r))
			out = s
		}
	}()

	if !utf8.ValidString(s) {
		return s
	}

	result, _, err := transform.String(newTransliterator(), letterReplacer.Replace(s))
	if err != nil {
		LogDebug("Text normalization failed", zap.Error(err))
		return s
	}

	result = nullTokenPattern.ReplaceAllString(result, "")
	result = blankRunPattern.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// NormalizeStrings 對字串切片逐一正規化，並移除正規化後為空的項目
func NormalizeStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := NormalizeText(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeValue 遞迴正規化任意 JSON 值中的字串
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return NormalizeText(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = NormalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}
