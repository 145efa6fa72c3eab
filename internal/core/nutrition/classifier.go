package nutrition

import (
	"strings"

	"nutrition-advisor/internal/pkg/common"
)

// ClassifyPrefixRunes 分類時只檢查的開頭字元數
const ClassifyPrefixRunes = 50

type markerFamily struct {
	kind    RecommendationType
	markers []string
}

// 檢查順序即優先順序：avoid > caution > recommended
var markerFamilies = []markerFamily{
	{kind: Avoid, markers: []string{"❌", "avoid", "not recommended", "non recommande", "pas recommande", "eviter", "deconseille"}},
	{kind: Caution, markers: []string{"⚠", "caution", "prudence", "attention", "moderation"}},
	{kind: Recommended, markers: []string{"✅", "recommended", "recommande"}},
}

// Classify 依開頭的標記判斷建議分類，找不到任何標記時保守地歸為 caution
func Classify(text string) RecommendationType {
	prefix := strings.ToLower(common.NormalizeText(leadingRunes(text, ClassifyPrefixRunes*2)))
	prefix = leadingRunes(prefix, ClassifyPrefixRunes)

	for _, family := range markerFamilies {
		for _, marker := range family.markers {
			if strings.Contains(prefix, marker) {
				return family.kind
			}
		}
	}
	return Caution
}

// BuildVerdict 正規化文字並分類
func BuildVerdict(text string) Verdict {
	normalized := common.NormalizeText(text)
	return Verdict{
		Text: normalized,
		Type: Classify(normalized),
	}
}

func leadingRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
