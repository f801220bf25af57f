package scoring

import (
	"errors"
	"fmt"
)

// MaxPrimaryScore 是完整试卷可获得的最高原始分。
const MaxPrimaryScore = 29

var ErrNegativePrimaryScore = errors.New("negative primary score")

// slotWeights 是完整试卷中每个题号的原始分。
var slotWeights = map[int]int{
	1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 1, 7: 1, 8: 1, 9: 1,
	10: 1, 11: 1, 12: 1, 13: 1, 14: 1, 15: 1, 16: 1, 17: 1, 18: 1,
	19: 3,
	22: 1, 23: 1, 24: 1, 25: 1,
	26: 2, 27: 2,
}

// secondaryScale 是官方的原始分到百分制换算表，下标为原始分。
var secondaryScale = [MaxPrimaryScore + 1]int{
	0, 7, 14, 20, 27, 34, 40, 43, 46, 48,
	51, 54, 56, 59, 62, 64, 67, 70, 72, 75,
	78, 80, 83, 85, 88, 90, 93, 95, 98, 100,
}

// SlotWeight 返回题号在完整试卷中的分值，未知题号为 0。
func SlotWeight(slot int) int {
	return slotWeights[slot]
}

// PrimaryScore 累加答对题号的分值。
func PrimaryScore(correctBySlot map[int]bool) int {
	total := 0
	for slot, ok := range correctBySlot {
		if ok {
			total += slotWeights[slot]
		}
	}
	return total
}

// PrimaryToSecondary 按换算表将原始分转换为百分制分数，超过 29 分按 29 分计。
func PrimaryToSecondary(primary int) (int, error) {
	if primary < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativePrimaryScore, primary)
	}
	if primary > MaxPrimaryScore {
		primary = MaxPrimaryScore
	}
	return secondaryScale[primary], nil
}
