package scoring

// FullFormDisplayTasks 是完整试卷显示的题目数（19-21 合并存储为一题）。
const FullFormDisplayTasks = 27

// fullFormSlots 是完整试卷中每个题号应出现的次数。
var fullFormSlots = func() map[int]int {
	slots := make(map[int]int, 25)
	for n := 1; n <= 18; n++ {
		slots[n] = 1
	}
	slots[GroupSlot] = 1
	for n := 22; n <= 27; n++ {
		slots[n] = 1
	}
	return slots
}()

// IsFullForm 判断变体的题号多重集合是否构成完整的标准试卷：
// 1-18、19、22-27 各恰好一次，且没有其他题号。
func IsFullForm(slots []int) bool {
	if len(slots) != len(fullFormSlots) {
		return false
	}
	seen := make(map[int]int, len(slots))
	for _, n := range slots {
		if _, ok := fullFormSlots[n]; !ok {
			return false
		}
		seen[n]++
		if seen[n] > fullFormSlots[n] {
			return false
		}
	}
	return len(seen) == len(fullFormSlots)
}

// DisplayTaskCount 返回变体显示的题目数。
func DisplayTaskCount(slots []int) int {
	if IsFullForm(slots) {
		return FullFormDisplayTasks
	}
	return len(slots)
}
