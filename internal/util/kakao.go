package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "​"
)

// FoldLines keeps the first line of a long reply visible and hides the rest
// behind KakaoTalk's '전체보기' fold. Replies with at most maxLines lines are
// returned unchanged.
func FoldLines(text string, maxLines int) string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" || maxLines <= 0 {
		return text
	}
	if strings.Count(text, "\n")+1 <= maxLines {
		return text
	}
	head, body, _ := strings.Cut(text, "\n")
	return ApplyKakaoSeeMorePadding(body, head)
}

// 카카오톡 '전체보기'용 제로폭 문자를 채워 메시지를 확장.
func ApplyKakaoSeeMorePadding(text, visible string) string {
	if strings.TrimSpace(text) == "" {
		return visible
	}
	visible = strings.TrimSpace(visible)

	var b strings.Builder
	b.Grow(len(visible) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + len(text) + 1)
	b.WriteString(visible)
	b.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// StripSeeMore removes the fold padding, for logs and tests.
func StripSeeMore(text string) string {
	return strings.ReplaceAll(text, KakaoZeroWidthSpace, "")
}
