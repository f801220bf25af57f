package service

import (
	"context"
	"encoding/json"
	"fmt"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/internal/repository"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// memDB 是测试用的内存存储，三个视图分别实现 AttemptStore、VariantStore、UserStore。
type memDB struct {
	mu sync.Mutex

	nextID   uint
	users    map[uint]model.User
	tasks    map[uint]model.Task
	variants map[uint]model.Variant
	bindings map[uint]model.VariantTask
	attempts map[uint]*model.Attempt
	answers  map[[2]uint]*model.AttemptAnswer

	createErr error
	now       func() time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:    make(map[uint]model.User),
		tasks:    make(map[uint]model.Task),
		variants: make(map[uint]model.Variant),
		bindings: make(map[uint]model.VariantTask),
		attempts: make(map[uint]*model.Attempt),
		answers:  make(map[[2]uint]*model.AttemptAnswer),
		now:      time.Now,
	}
}

func (m *memDB) id() uint {
	m.nextID++
	return m.nextID
}

// referenceFor 生成与题号格式相符的标准答案。
func referenceFor(slot int) string {
	switch slot {
	case 19:
		return "15,16,17"
	case 26, 27:
		return fmt.Sprintf("%d,%d\n%d,%d", slot, slot+1, slot+2, slot+3)
	default:
		return fmt.Sprintf("%d", slot*7)
	}
}

func fullFormSlots() []int {
	slots := make([]int, 0, 25)
	for n := 1; n <= 19; n++ {
		slots = append(slots, n)
	}
	for n := 22; n <= 27; n++ {
		slots = append(slots, n)
	}
	return slots
}

// addVariant 创建变体并按顺序绑定新题，返回变体 ID 和 题号 -> 绑定 ID。
func (m *memDB) addVariant(source string, slots []int) (uint, map[int]uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := model.Variant{Source: source, Duration: 14100}
	v.ID = m.id()
	v.CreatedAt = m.now()
	m.variants[v.ID] = v

	bindingBySlot := make(map[int]uint, len(slots))
	for i, slot := range slots {
		t := model.Task{SlotNumber: slot, ReferenceAnswer: referenceFor(slot), Statement: fmt.Sprintf("task %d", slot)}
		t.ID = m.id()
		t.CreatedAt = m.now()
		m.tasks[t.ID] = t

		b := model.VariantTask{VariantID: v.ID, TaskID: t.ID, Position: i + 1}
		b.ID = m.id()
		m.bindings[b.ID] = b
		bindingBySlot[slot] = b.ID
	}
	return v.ID, bindingBySlot
}

func (m *memDB) addUser(username string, role model.UserRole) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{Username: username, FirstName: username, Role: role}
	u.ID = m.id()
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u.ID
}

func (m *memDB) bindingRow(b model.VariantTask) repository.BindingRow {
	t := m.tasks[b.TaskID]
	return repository.BindingRow{
		ID:              b.ID,
		VariantID:       b.VariantID,
		TaskID:          b.TaskID,
		Position:        b.Position,
		SlotNumber:      t.SlotNumber,
		Statement:       t.Statement,
		ReferenceAnswer: t.ReferenceAnswer,
	}
}

type memAttempts struct{ *memDB }

func (m memAttempts) Create(_ context.Context, attempt *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.attempts {
		if a.UserID == attempt.UserID && a.VariantID == attempt.VariantID {
			return fmt.Errorf("duplicate attempt")
		}
	}
	attempt.ID = m.id()
	cp := *attempt
	m.attempts[attempt.ID] = &cp
	return nil
}

func (m memAttempts) FindByID(_ context.Context, id uint) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAttempts) FindByUserAndVariant(_ context.Context, userID, variantID uint) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.UserID == userID && a.VariantID == variantID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memAttempts) MarkFinished(_ context.Context, attemptID uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok || a.FinishedAt != nil {
		return false, nil
	}
	a.FinishedAt = &at
	return true, nil
}

func (m memAttempts) UpsertAnswer(_ context.Context, answer *model.AttemptAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uint{answer.AttemptID, answer.VariantTaskID}
	if existing, ok := m.answers[key]; ok {
		existing.AnswerText = answer.AnswerText
		existing.IsCorrect = answer.IsCorrect
		existing.UpdatedAt = answer.UpdatedAt
		return nil
	}
	cp := *answer
	cp.ID = m.id()
	m.answers[key] = &cp
	return nil
}

func (m memAttempts) ListFinished(_ context.Context, f repository.AttemptFilter) ([]model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Attempt
	for _, a := range m.attempts {
		if a.FinishedAt == nil {
			continue
		}
		if f.UserID != 0 && a.UserID != f.UserID {
			continue
		}
		if !f.Since.IsZero() && a.FinishedAt.Before(f.Since) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinishedAt.Equal(*out[j].FinishedAt) {
			if f.NewestFirst {
				return out[i].FinishedAt.After(*out[j].FinishedAt)
			}
			return out[i].FinishedAt.Before(*out[j].FinishedAt)
		}
		if f.NewestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m memAttempts) AnswerRows(_ context.Context, attemptIDs []uint) ([]repository.AnswerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[uint]bool, len(attemptIDs))
	for _, id := range attemptIDs {
		wanted[id] = true
	}
	type positioned struct {
		row repository.AnswerRow
		pos int
	}
	var rows []positioned
	for key, a := range m.answers {
		if !wanted[key[0]] {
			continue
		}
		b := m.bindings[key[1]]
		t := m.tasks[b.TaskID]
		rows = append(rows, positioned{
			row: repository.AnswerRow{
				AttemptID:       a.AttemptID,
				VariantTaskID:   a.VariantTaskID,
				SlotNumber:      t.SlotNumber,
				ReferenceAnswer: t.ReferenceAnswer,
				AnswerText:      a.AnswerText,
				IsCorrect:       a.IsCorrect,
				UpdatedAt:       a.UpdatedAt,
			},
			pos: b.Position,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].row.AttemptID != rows[j].row.AttemptID {
			return rows[i].row.AttemptID < rows[j].row.AttemptID
		}
		return rows[i].pos < rows[j].pos
	})
	out := make([]repository.AnswerRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.row)
	}
	return out, nil
}

func (m memAttempts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.attempts)), nil
}

func (m memAttempts) CountStartedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if !a.StartedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memVariants struct{ *memDB }

func (m memVariants) FindByID(_ context.Context, id uint) (*model.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (m memVariants) FindByIDs(_ context.Context, ids []uint) ([]model.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Variant
	for _, id := range ids {
		if v, ok := m.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m memVariants) FindBinding(_ context.Context, id uint) (*repository.BindingRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	row := m.bindingRow(b)
	return &row, nil
}

func (m memVariants) ListBindings(_ context.Context, variantID uint) ([]repository.BindingRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.BindingRow
	for _, b := range m.bindings {
		if b.VariantID == variantID {
			out = append(out, m.bindingRow(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m memVariants) SlotNumbers(_ context.Context, variantIDs []uint) (map[uint][]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[uint]bool, len(variantIDs))
	for _, id := range variantIDs {
		wanted[id] = true
	}
	out := make(map[uint][]int, len(variantIDs))
	for _, b := range m.bindings {
		if wanted[b.VariantID] {
			out[b.VariantID] = append(out[b.VariantID], m.tasks[b.TaskID].SlotNumber)
		}
	}
	return out, nil
}

func (m memVariants) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.variants)), nil
}

func (m memVariants) CountTasks(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tasks)), nil
}

func (m memVariants) CountSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.variants {
		if !v.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m memVariants) CountTasksSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tasks {
		if !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m memVariants) ListRecent(_ context.Context, limit int) ([]model.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Variant, 0, len(m.variants))
	for _, v := range m.variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].BaseModel, out[j].BaseModel) })
	return head(out, limit), nil
}

func (m memVariants) ListRecentTasks(_ context.Context, limit int) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].BaseModel, out[j].BaseModel) })
	return head(out, limit), nil
}

// newer 与仓储的 "created_at desc, id desc" 排序一致。
func newer(a, b model.BaseModel) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

type memUsers struct{ *memDB }

func (m memUsers) FindByIDs(_ context.Context, ids []uint) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m memUsers) CountSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m memUsers) ListRecent(_ context.Context, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].BaseModel, out[j].BaseModel) })
	return head(out, limit), nil
}

// memCache 以 JSON 保存，与 Redis 实现的编码行为一致。
type memCache struct {
	mu          sync.Mutex
	data        map[uint][]byte
	hits        int
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[uint][]byte)}
}

func (c *memCache) Get(_ context.Context, userID uint, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[userID]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, userID uint, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[userID] = raw
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	c.invalidated++
	return nil
}

// clock 是可手动推进的测试时钟。
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db        *memDB
	cache     *memCache
	clock     *clock
	attempts  *AttemptService
	stats     *StatsService
	dashboard *DashboardService
}

func newFixture() *fixture {
	db := newMemDB()
	cache := newMemCache()
	clk := newClock()
	db.now = clk.Now

	as := NewAttemptService(memAttempts{db}, memVariants{db}, cache)
	as.now = clk.Now
	ss := NewStatsService(memAttempts{db}, memVariants{db}, cache, configForTests())
	ss.now = clk.Now

	return &fixture{
		db:        db,
		cache:     cache,
		clock:     clk,
		attempts:  as,
		stats:     ss,
		dashboard: NewDashboardService(ss, memUsers{db}),
	}
}

func strPtr(s string) *string { return &s }
