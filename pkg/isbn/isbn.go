package isbn

import "strings"

// Normalize 去除ISBN中的连字符和空白
// 例如：978-0-441-01359-3 → 9780441013593
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, raw)
}

// Valid 校验ISBN格式
// 规则：去除分隔符后必须是10位或13位纯数字
// 简化实现：不校验校验位（与馆藏录入习惯一致）
func Valid(raw string) bool {
	digits := Normalize(raw)
	if len(digits) != 10 && len(digits) != 13 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
