package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(id, name, email, role string) *model.User {
	u := &model.User{UserID: id, Name: name, Email: email, Role: role}
	m.users[id] = u
	return u
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock ApartmentRepository ──

type mockApartmentRepo struct {
	apartments map[string]*model.Apartment
}

func newMockApartmentRepo() *mockApartmentRepo {
	return &mockApartmentRepo{apartments: make(map[string]*model.Apartment)}
}

func (m *mockApartmentRepo) Create(_ context.Context, apt *model.Apartment) error {
	if apt.ApartmentID == "" {
		apt.ApartmentID = "apt-" + apt.Name
	}
	m.apartments[apt.ApartmentID] = apt
	return nil
}

func (m *mockApartmentRepo) GetByID(_ context.Context, id string) (*model.Apartment, error) {
	if a, ok := m.apartments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApartmentRepo) GetByName(_ context.Context, name string) (*model.Apartment, error) {
	for _, a := range m.apartments {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApartmentRepo) List(_ context.Context, activeOnly bool) ([]model.Apartment, error) {
	var result []model.Apartment
	for _, a := range m.apartments {
		if activeOnly && !a.IsActive {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *mockApartmentRepo) Update(_ context.Context, apt *model.Apartment) error {
	m.apartments[apt.ApartmentID] = apt
	return nil
}

// ── Mock DrawingRepository ──
// 按值保存，Update 校验并递增 version，与真实仓库的乐观锁一致

type mockDrawingRepo struct {
	drawings map[string]model.Drawing
	seq      int
}

func newMockDrawingRepo() *mockDrawingRepo {
	return &mockDrawingRepo{drawings: make(map[string]model.Drawing)}
}

func (m *mockDrawingRepo) Create(_ context.Context, drawing *model.Drawing) error {
	if drawing.DrawingID == "" {
		m.seq++
		drawing.DrawingID = fmt.Sprintf("drawing-%d", m.seq)
	}
	if drawing.Version == 0 {
		drawing.Version = 1
	}
	drawing.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.drawings[drawing.DrawingID] = *drawing
	return nil
}

func (m *mockDrawingRepo) GetByID(_ context.Context, id string) (*model.Drawing, error) {
	if d, ok := m.drawings[id]; ok {
		return &d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDrawingRepo) List(_ context.Context, offset, limit int) ([]model.Drawing, int64, error) {
	var all []model.Drawing
	for _, d := range m.drawings {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DrawingID < all[j].DrawingID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Drawing{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDrawingRepo) Update(_ context.Context, drawing *model.Drawing) error {
	stored, ok := m.drawings[drawing.DrawingID]
	if !ok || stored.Version != drawing.Version {
		return pkgerrors.ErrOptimisticLock
	}
	drawing.Version++
	m.drawings[drawing.DrawingID] = *drawing
	return nil
}

func (m *mockDrawingRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.drawings, id)
	return nil
}

// ── Mock PeriodRepository ──

type mockPeriodRepo struct {
	periods map[string]*model.Period
	seq     int
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{periods: make(map[string]*model.Period)}
}

func (m *mockPeriodRepo) Create(_ context.Context, period *model.Period) error {
	if period.PeriodID == "" {
		m.seq++
		period.PeriodID = fmt.Sprintf("period-%d", m.seq)
	}
	cp := *period
	m.periods[period.PeriodID] = &cp
	return nil
}

func (m *mockPeriodRepo) BatchCreate(ctx context.Context, periods []model.Period) error {
	for i := range periods {
		if err := m.Create(ctx, &periods[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockPeriodRepo) GetByID(_ context.Context, id string) (*model.Period, error) {
	if p, ok := m.periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) ListByDrawing(_ context.Context, drawingID string) ([]model.Period, error) {
	var result []model.Period
	for _, p := range m.periods {
		if p.DrawingID == drawingID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (m *mockPeriodRepo) CountByDrawing(ctx context.Context, drawingID string) (int64, error) {
	list, _ := m.ListByDrawing(ctx, drawingID)
	return int64(len(list)), nil
}

func (m *mockPeriodRepo) MaxSortOrder(_ context.Context, drawingID string) (int, error) {
	max := 0
	for _, p := range m.periods {
		if p.DrawingID == drawingID && p.SortOrder > max {
			max = p.SortOrder
		}
	}
	return max, nil
}

func (m *mockPeriodRepo) Update(_ context.Context, period *model.Period) error {
	cp := *period
	m.periods[period.PeriodID] = &cp
	return nil
}

func (m *mockPeriodRepo) Delete(_ context.Context, id string) error {
	delete(m.periods, id)
	return nil
}

func (m *mockPeriodRepo) DeleteByDrawing(_ context.Context, drawingID string) error {
	for id, p := range m.periods {
		if p.DrawingID == drawingID {
			delete(m.periods, id)
		}
	}
	return nil
}

// ── Mock WishRepository ──

type mockWishRepo struct {
	wishes map[string]*model.Wish
	seq    int
}

func newMockWishRepo() *mockWishRepo {
	return &mockWishRepo{wishes: make(map[string]*model.Wish)}
}

// Upsert 以 (drawing, user, priority) 为唯一键覆盖
func (m *mockWishRepo) Upsert(_ context.Context, wish *model.Wish) error {
	for _, w := range m.wishes {
		if w.DrawingID == wish.DrawingID && w.UserID == wish.UserID && w.Priority == wish.Priority {
			wish.WishID = w.WishID
			break
		}
	}
	if wish.WishID == "" {
		m.seq++
		wish.WishID = fmt.Sprintf("wish-%d", m.seq)
	}
	cp := *wish
	cp.User = nil
	m.wishes[wish.WishID] = &cp
	return nil
}

func (m *mockWishRepo) GetByID(_ context.Context, id string) (*model.Wish, error) {
	if w, ok := m.wishes[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWishRepo) ListByDrawing(_ context.Context, drawingID string) ([]model.Wish, error) {
	var result []model.Wish
	for _, w := range m.wishes {
		if w.DrawingID == drawingID {
			result = append(result, *w)
		}
	}
	sortWishes(result)
	return result, nil
}

func (m *mockWishRepo) ListByDrawingAndUser(ctx context.Context, drawingID, userID string) ([]model.Wish, error) {
	all, _ := m.ListByDrawing(ctx, drawingID)
	var result []model.Wish
	for _, w := range all {
		if w.UserID == userID {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *mockWishRepo) Delete(_ context.Context, id string) error {
	delete(m.wishes, id)
	return nil
}

func (m *mockWishRepo) DeleteByPeriod(_ context.Context, periodID string) error {
	for id, w := range m.wishes {
		if w.PeriodID == periodID {
			delete(m.wishes, id)
		}
	}
	return nil
}

func (m *mockWishRepo) DeleteByDrawing(_ context.Context, drawingID string) error {
	for id, w := range m.wishes {
		if w.DrawingID == drawingID {
			delete(m.wishes, id)
		}
	}
	return nil
}

func sortWishes(wishes []model.Wish) {
	sort.Slice(wishes, func(i, j int) bool {
		if wishes[i].UserID != wishes[j].UserID {
			return wishes[i].UserID < wishes[j].UserID
		}
		return wishes[i].Priority < wishes[j].Priority
	})
}

// ── Mock ExecutionRepository ──

type mockExecutionRepo struct {
	executions []*model.Execution
	seq        int
}

func newMockExecutionRepo() *mockExecutionRepo {
	return &mockExecutionRepo{}
}

func (m *mockExecutionRepo) Create(_ context.Context, execution *model.Execution) error {
	if execution.ExecutionID == "" {
		m.seq++
		execution.ExecutionID = fmt.Sprintf("exec-%d", m.seq)
	}
	cp := *execution
	m.executions = append(m.executions, &cp)
	return nil
}

func (m *mockExecutionRepo) GetByID(_ context.Context, id string) (*model.Execution, error) {
	for _, e := range m.executions {
		if e.ExecutionID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExecutionRepo) ListByDrawing(_ context.Context, drawingID string) ([]model.Execution, error) {
	var result []model.Execution
	for _, e := range m.executions {
		if e.DrawingID == drawingID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockExecutionRepo) CountByDrawing(ctx context.Context, drawingID string) (int64, error) {
	list, _ := m.ListByDrawing(ctx, drawingID)
	return int64(len(list)), nil
}

func (m *mockExecutionRepo) ExistsForPeriod(_ context.Context, drawingID, periodID string) (bool, error) {
	for _, e := range m.executions {
		if e.DrawingID != drawingID {
			continue
		}
		for _, a := range e.Allocations {
			if a.PeriodID == periodID {
				return true, nil
			}
		}
	}
	return false, nil
}
