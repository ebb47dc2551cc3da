package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は利用者が入力したテキストからHTMLを取り除く。
// 記録はCSVやHTMLレポートにそのまま出力されるため、保存前に適用する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyでTextSanitizerを生成する。
// StrictPolicyは全てのタグを除去し、テキストのみを残す。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxCleanPasses は除去と実体参照の復元を繰り返す上限。
const maxCleanPasses = 5

// Clean はタグを除去し、エスケープされた実体参照を元の文字に戻して前後の空白を削る。
// 復元で新たなタグが現れなくなるまで繰り返すため、"&lt;script&gt;" も除去される。
// "Pride & Prejudice" のような書名はそのまま保持される。
func (s *TextSanitizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	out := text
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	// 収束しない入力はエスケープしたまま返す
	return strings.TrimSpace(s.policy.Sanitize(out))
}
