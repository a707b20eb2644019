package service

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"my-page/backend/config"
	"my-page/backend/internal/draft"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
)

// ── 测试辅助 ──

type testEnv struct {
	svc        *Service
	users      *mockUserRepo
	apartments *mockApartmentRepo
	drawings   *mockDrawingRepo
	periods    *mockPeriodRepo
	wishes     *mockWishRepo
	executions *mockExecutionRepo
}

func setupTestEnv() *testEnv {
	env := &testEnv{
		users:      newMockUserRepo(),
		apartments: newMockApartmentRepo(),
		drawings:   newMockDrawingRepo(),
		periods:    newMockPeriodRepo(),
		wishes:     newMockWishRepo(),
		executions: newMockExecutionRepo(),
	}
	repo := &repository.Repository{
		User:      env.users,
		Apartment: env.apartments,
		Drawing:   env.drawings,
		Period:    env.periods,
		Wish:      env.wishes,
		Execution: env.executions,
	}
	cfg := &config.Config{
		Drawing: config.DrawingConfig{
			MaxAllocationsPerUser: 2,
			MaxPriority:           2,
			LockTTL:               time.Minute,
			LockWait:              time.Second,
			ImportMaxRows:         100,
		},
	}
	env.svc = NewService(Deps{
		Config: cfg,
		Repo:   repo,
		Locker: lock.NewLocal(cfg.Drawing.LockWait),
		Logger: zap.NewNop(),
	})
	return env
}

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// addDrawing 直接在 mock 中放入指定状态的抽签
func (e *testEnv) addDrawing(id, status string) {
	d := model.Drawing{DrawingID: id, Season: "Sommer 2026", Status: status}
	d.Version = 1
	e.drawings.drawings[id] = d
}

func (e *testEnv) addApartment(id, name string, sortOrder int) {
	e.apartments.apartments[id] = &model.Apartment{ApartmentID: id, Name: name, SortOrder: sortOrder, IsActive: true}
}

func (e *testEnv) addPeriod(id, drawingID, description, start, end string, excluded ...string) {
	e.periods.periods[id] = &model.Period{
		PeriodID:             id,
		DrawingID:            drawingID,
		Description:          description,
		StartDate:            day(start),
		EndDate:              day(end),
		ExcludedApartmentIDs: model.StringArray(excluded),
	}
}

func (e *testEnv) addWish(id, drawingID, userID, periodID string, priority int, desired ...string) {
	e.wishes.wishes[id] = &model.Wish{
		WishID:              id,
		DrawingID:           drawingID,
		UserID:              userID,
		PeriodID:            periodID,
		Priority:            priority,
		DesiredApartmentIDs: model.StringArray(desired),
	}
}

func (e *testEnv) drawing(t *testing.T, id string) model.Drawing {
	t.Helper()
	d, ok := e.drawings.drawings[id]
	if !ok {
		t.Fatalf("抽签 %s 不存在", id)
	}
	return d
}

// seedFor 找到一个让 ShuffleOrder 产生指定顺序的种子
func seedFor(t *testing.T, userIDs, want []string) int64 {
	t.Helper()
	for s := int64(0); s < 10000; s++ {
		if strings.Join(draft.ShuffleOrder(userIDs, s), ",") == strings.Join(want, ",") {
			return s
		}
	}
	t.Fatalf("未找到产生顺序 %v 的种子", want)
	return 0
}

func int64Ptr(v int64) *int64 { return &v }

var (
	adminCaller  = Caller{UserID: "admin-1", Role: "admin"}
	memberCaller = Caller{UserID: "user-a", Role: "member"}
)

// setupLockedDrawing 三个参与者争抢一个时段的两间公寓
func setupLockedDrawing() *testEnv {
	env := setupTestEnv()
	env.users.add("user-a", "Anna", "anna@example.com", "member")
	env.users.add("user-b", "Bjørn", "bjorn@example.com", "member")
	env.users.add("user-c", "Cecilie", "cecilie@example.com", "member")
	env.addApartment("apt-x", "X", 1)
	env.addApartment("apt-y", "Y", 2)
	env.addDrawing("d1", model.DrawingStatusLocked)
	env.addPeriod("p1", "d1", "Uke 27", "2026-07-01", "2026-07-08")
	env.addWish("w-a", "d1", "user-a", "p1", 1, "apt-x", "apt-y")
	env.addWish("w-b", "d1", "user-b", "p1", 1, "apt-x", "apt-y")
	env.addWish("w-c", "d1", "user-c", "p1", 1, "apt-x", "apt-y")
	return env
}
