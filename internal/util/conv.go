package util

import (
	"strconv"
)

// QueryInt 解析正整数查询参数，缺失或非法时返回默认值
func QueryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
