package database

import (
	"context"
	"fmt"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"log"

	"gorm.io/gorm"
)

// demoAnswer 生成与题号格式相符的示例答案：26、27 为两行表格，19 为三个单元格。
func demoAnswer(slot int) string {
	switch slot {
	case 19:
		return "15,16,17"
	case 26, 27:
		return fmt.Sprintf("%d,%d\n%d,%d", slot, slot*2, slot*3, slot*4)
	case 25:
		return fmt.Sprintf("%d,%d", slot*10, slot*11)
	default:
		return fmt.Sprintf("%d", slot*7)
	}
}

var demoUsers = []model.User{
	{Username: "demo_student", Email: "student@example.com", FirstName: "Demo", LastName: "Student", Role: model.Student},
	{Username: "demo_admin", Email: "admin@example.com", FirstName: "Demo", LastName: "Admin", Role: model.Admin},
}

// SeedDemo 在题库为空时创建一套覆盖全部题号的完整示例试卷和两个演示账号。
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Task{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	slots := make([]int, 0, 25)
	for n := 1; n <= 19; n++ {
		slots = append(slots, n)
	}
	for n := 22; n <= 27; n++ {
		slots = append(slots, n)
	}

	tasks := make([]model.Task, 0, len(slots))
	for _, n := range slots {
		tasks = append(tasks, model.Task{
			SlotNumber:      n,
			Statement:       fmt.Sprintf("Demo task %d", n),
			ReferenceAnswer: demoAnswer(n),
			Source:          "demo",
		})
	}

	variant := &model.Variant{Source: "Demo full variant", Duration: 14100}
	if err := repository.NewVariantRepository(db).CreateWithTasks(ctx, variant, tasks); err != nil {
		return err
	}

	users := repository.NewUserRepository(db)
	for i := range demoUsers {
		u := demoUsers[i]
		if err := users.Create(ctx, &u); err != nil {
			return err
		}
	}

	log.Printf("Seeded demo variant %d with %d tasks", variant.ID, len(tasks))
	return nil
}
