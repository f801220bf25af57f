package scoring

import "strings"

// NormalizeAnswer 将答案规范化为仅用于比较的形式。
// 含逗号或换行的答案按表格处理：逐格去空白并转小写，丢弃空单元格和空行。
func NormalizeAnswer(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	if !strings.ContainsAny(raw, ",\n") {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	rows := strings.Split(raw, "\n")
	normalized := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, 4)
		for _, cell := range strings.Split(row, ",") {
			cell = strings.ToLower(strings.TrimSpace(cell))
			if cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			normalized = append(normalized, strings.Join(cells, ","))
		}
	}
	return strings.Join(normalized, "\n")
}
