package scoring

import "strings"

// GroupSlot 是合并存储的第 19 题，代表显示的 19、20、21 三题。
const GroupSlot = 19

// GroupCells 是第 19 题答案中参与评分的单元格数。
const GroupCells = 3

// IsCorrect 判断提交的答案是否正确。
// 第 19 题要求前三个单元格全部一致；其余题号比较规范化后的文本。
// 格式错误的答案视为错误，不返回 error。
func IsCorrect(submitted, reference string, slot int) bool {
	if strings.TrimSpace(submitted) == "" || strings.TrimSpace(reference) == "" {
		return false
	}

	if slot == GroupSlot {
		got := splitCells(submitted)
		want := splitCells(reference)
		if len(got) < GroupCells || len(want) < GroupCells {
			return false
		}
		for i := 0; i < GroupCells; i++ {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}

	return NormalizeAnswer(submitted) == NormalizeAnswer(reference)
}

// GroupCellMatches 逐格比较第 19 题的三个单元格，仅用于统计展示。
// 任一侧缺失或为空的单元格记为不匹配。
func GroupCellMatches(submitted, reference string) [GroupCells]bool {
	var matches [GroupCells]bool
	got := splitCells(submitted)
	want := splitCells(reference)
	for i := 0; i < GroupCells; i++ {
		if i >= len(got) || i >= len(want) {
			break
		}
		matches[i] = got[i] != "" && got[i] == want[i]
	}
	return matches
}

func splitCells(s string) []string {
	parts := strings.Split(s, ",")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return cells
}
