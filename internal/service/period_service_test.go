package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

func setupPeriodEnv(status string) *testEnv {
	env := setupTestEnv()
	env.addApartment("apt-x", "X", 1)
	env.addDrawing("d1", status)
	env.addPeriod("p1", "d1", "Uke 23", "2026-06-03", "2026-06-10")
	return env
}

// ── Add 测试 ──

func TestPeriodService_Add_Success(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusDraft)

	result, err := env.svc.Period.Add(context.Background(), "d1", &dto.CreatePeriodRequest{
		StartDate:            "2026-06-10",
		EndDate:              "2026-06-17",
		Description:          "Uke 24",
		ExcludedApartmentIDs: []string{"apt-x"},
	}, "admin-1")
	if err != nil {
		t.Fatalf("Add 应成功: %v", err)
	}
	if result.StartDate != "2026-06-10" || result.EndDate != "2026-06-17" {
		t.Errorf("日期不符: %s ~ %s", result.StartDate, result.EndDate)
	}
	if result.SortOrder != 1 {
		t.Errorf("期望SortOrder=1，实际=%d", result.SortOrder)
	}
	if len(result.ExcludedApartmentIDs) != 1 {
		t.Errorf("期望排除 1 个公寓，实际=%v", result.ExcludedApartmentIDs)
	}
}

func TestPeriodService_Add_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreatePeriodRequest
	}{
		{"开始晚于结束", dto.CreatePeriodRequest{StartDate: "2026-06-17", EndDate: "2026-06-10", Description: "Uke 24"}},
		{"日期格式错误", dto.CreatePeriodRequest{StartDate: "10.06.2026", EndDate: "2026-06-17", Description: "Uke 24"}},
		{"与现有时段重叠", dto.CreatePeriodRequest{StartDate: "2026-06-08", EndDate: "2026-06-15", Description: "Uke 24"}},
		{"描述重复", dto.CreatePeriodRequest{StartDate: "2026-06-10", EndDate: "2026-06-17", Description: "Uke 23"}},
		{"描述含换行", dto.CreatePeriodRequest{StartDate: "2026-06-10", EndDate: "2026-06-17", Description: "Uke\n24"}},
		{"描述含制表符", dto.CreatePeriodRequest{StartDate: "2026-06-10", EndDate: "2026-06-17", Description: "Uke\t24"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupPeriodEnv(model.DrawingStatusOpen)
			_, err := env.svc.Period.Add(context.Background(), "d1", &tt.req, "admin-1")
			if !pkgerrors.IsValidation(err) {
				t.Errorf("期望 ValidationError，实际: %v", err)
			}
			if len(env.periods.periods) != 1 {
				t.Error("校验失败不应写入时段")
			}
		})
	}
}

func TestPeriodService_Add_UnknownExcludedApartment(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusDraft)

	_, err := env.svc.Period.Add(context.Background(), "d1", &dto.CreatePeriodRequest{
		StartDate:            "2026-06-10",
		EndDate:              "2026-06-17",
		Description:          "Uke 24",
		ExcludedApartmentIDs: []string{"apt-missing"},
	}, "admin-1")
	if !pkgerrors.IsReference(err) {
		t.Errorf("期望 ReferenceError，实际: %v", err)
	}
}

func TestPeriodService_Add_ClosedStatusRejected(t *testing.T) {
	for _, status := range []string{
		model.DrawingStatusLocked,
		model.DrawingStatusDrawn,
		model.DrawingStatusPublished,
	} {
		t.Run(status, func(t *testing.T) {
			env := setupPeriodEnv(status)

			_, err := env.svc.Period.Add(context.Background(), "d1", &dto.CreatePeriodRequest{
				StartDate: "2026-06-10", EndDate: "2026-06-17", Description: "Uke 24",
			}, "admin-1")
			var stErr *pkgerrors.StateTransitionError
			if !errors.As(err, &stErr) {
				t.Fatalf("%s 状态应返回 StateTransitionError，实际: %v", status, err)
			}
			if stErr.Op != opEditPeriod {
				t.Errorf("期望Op=%s，实际=%s", opEditPeriod, stErr.Op)
			}
			if len(env.periods.periods) != 1 {
				t.Error("被拒绝的新增不应写入时段")
			}
		})
	}
}

// ── Update 测试 ──

func TestPeriodService_Update_Success(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusOpen)
	desc := "Uke 23 (pinse)"
	end := "2026-06-11"

	result, err := env.svc.Period.Update(context.Background(), "d1", "p1", &dto.UpdatePeriodRequest{
		Description: &desc,
		EndDate:     &end,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Description != desc || result.EndDate != end {
		t.Errorf("更新结果不符: %+v", result)
	}
}

func TestPeriodService_Update_NotFound(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusOpen)
	desc := "x"

	_, err := env.svc.Period.Update(context.Background(), "d1", "p-missing", &dto.UpdatePeriodRequest{Description: &desc}, "admin-1")
	if !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("期望 ErrPeriodNotFound，实际: %v", err)
	}
}

// ── Delete 测试 ──

func TestPeriodService_Delete_RemovesWishes(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusOpen)
	env.addWish("w1", "d1", "user-a", "p1", 1, "apt-x")

	if err := env.svc.Period.Delete(context.Background(), "d1", "p1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(env.periods.periods) != 0 {
		t.Error("时段应被删除")
	}
	if len(env.wishes.wishes) != 0 {
		t.Error("时段下的愿望应一并删除")
	}
}

func TestPeriodService_Delete_ReferencedByExecution(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusOpen)
	env.executions.Create(context.Background(), &model.Execution{
		DrawingID:   "d1",
		Allocations: []model.Allocation{{PeriodID: "p1", ApartmentID: "apt-x", UserID: "user-a"}},
	})

	err := env.svc.Period.Delete(context.Background(), "d1", "p1")
	if !pkgerrors.IsValidation(err) {
		t.Errorf("被执行记录引用的时段删除应返回 ValidationError，实际: %v", err)
	}
}

// ── BulkCreateWeekly 测试 ──

func TestPeriodService_BulkCreateWeekly_DefaultLabel(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusDraft)

	list, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate: "2026-06-10",
		EndDate:   "2026-07-01",
	}, "admin-1")
	if err != nil {
		t.Fatalf("BulkCreateWeekly 应成功: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("期望生成 3 个时段，实际=%d", len(list))
	}

	wantLabels := []string{"Week 24", "Week 25", "Week 26"}
	for i, p := range list {
		if p.Description != wantLabels[i] {
			t.Errorf("第 %d 个时段期望描述=%s，实际=%s", i+1, wantLabels[i], p.Description)
		}
		start, _ := time.Parse(dateLayout, p.StartDate)
		end, _ := time.Parse(dateLayout, p.EndDate)
		if end.Sub(start) != 7*24*time.Hour {
			t.Errorf("时段 %s 长度应为 7 天", p.Description)
		}
		if start.Weekday() != time.Wednesday {
			t.Errorf("时段 %s 应从周三开始", p.Description)
		}
		if p.SortOrder != i+1 {
			t.Errorf("期望SortOrder=%d，实际=%d", i+1, p.SortOrder)
		}
	}
	if len(env.periods.periods) != 4 {
		t.Errorf("期望共 4 个时段，实际=%d", len(env.periods.periods))
	}
}

func TestPeriodService_BulkCreateWeekly_Template(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	list, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate:     "2026-06-03",
		EndDate:       "2026-06-17",
		LabelTemplate: "Uke {week} ({start})",
	}, "admin-1")
	if err != nil {
		t.Fatalf("BulkCreateWeekly 应成功: %v", err)
	}
	if list[0].Description != "Uke 23 (2026-06-03)" {
		t.Errorf("模板描述不符: %s", list[0].Description)
	}

	env2 := setupTestEnv()
	env2.addDrawing("d1", model.DrawingStatusDraft)
	list, err = env2.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate:     "2026-06-03",
		EndDate:       "2026-06-17",
		LabelTemplate: "Sommer",
	}, "admin-1")
	if err != nil {
		t.Fatalf("BulkCreateWeekly 应成功: %v", err)
	}
	if list[0].Description != "Sommer 1" || list[1].Description != "Sommer 2" {
		t.Errorf("无占位符模板应追加序号，实际: %s, %s", list[0].Description, list[1].Description)
	}
}

func TestPeriodService_BulkCreateWeekly_WeekdayMismatch(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	_, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate: "2026-06-03",
		EndDate:   "2026-06-16",
	}, "admin-1")
	if !pkgerrors.IsValidation(err) {
		t.Errorf("起止日期星期不同应返回 ValidationError，实际: %v", err)
	}
	if len(env.periods.periods) != 0 {
		t.Error("校验失败不应写入任何时段")
	}
}

func TestPeriodService_BulkCreateWeekly_OverlapIsAllOrNothing(t *testing.T) {
	env := setupPeriodEnv(model.DrawingStatusDraft)

	_, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate:     "2026-05-27",
		EndDate:       "2026-06-17",
		LabelTemplate: "Uke {week}b",
	}, "admin-1")
	if !pkgerrors.IsValidation(err) {
		t.Errorf("与现有时段重叠应返回 ValidationError，实际: %v", err)
	}
	if len(env.periods.periods) != 1 {
		t.Error("批量生成失败时不应写入任何时段")
	}
}

func TestPeriodService_BulkCreateWeekly_UnknownPlaceholderGetsSequence(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	list, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate:     "2026-06-03",
		EndDate:       "2026-06-17",
		LabelTemplate: "Hytte {x}",
	}, "admin-1")
	if err != nil {
		t.Fatalf("未知占位符模板应追加序号并成功: %v", err)
	}
	if list[0].Description != "Hytte {x} 1" || list[1].Description != "Hytte {x} 2" {
		t.Errorf("期望追加序号，实际: %s, %s", list[0].Description, list[1].Description)
	}
}

func TestPeriodService_BulkCreateWeekly_FullYearDefaultLabelsUnique(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	// 2026-06-03 起 52 周，跨越年末
	list, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate: "2026-06-03",
		EndDate:   "2027-06-02",
	}, "admin-1")
	if err != nil {
		t.Fatalf("52 周默认模板应成功: %v", err)
	}
	if len(list) != maxBulkWeeks {
		t.Fatalf("期望生成 %d 个时段，实际=%d", maxBulkWeeks, len(list))
	}
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		if seen[p.Description] {
			t.Fatalf("描述重复: %s", p.Description)
		}
		seen[p.Description] = true
	}
}

func TestPeriodService_BulkCreateWeekly_TooManyWeeks(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	_, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate: "2026-06-03",
		EndDate:   "2027-06-09",
	}, "admin-1")
	var vErr *pkgerrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("超过 %d 周应返回 ValidationError，实际: %v", maxBulkWeeks, err)
	}
	if vErr.Field != "end_date" {
		t.Errorf("期望Field=end_date，实际=%s", vErr.Field)
	}
	if len(env.periods.periods) != 0 {
		t.Error("校验失败不应写入任何时段")
	}
}

func TestPeriodService_BulkCreateWeekly_ControlCharInTemplate(t *testing.T) {
	env := setupTestEnv()
	env.addDrawing("d1", model.DrawingStatusDraft)

	_, err := env.svc.Period.BulkCreateWeekly(context.Background(), "d1", &dto.BulkCreatePeriodsRequest{
		StartDate:     "2026-06-03",
		EndDate:       "2026-06-17",
		LabelTemplate: "Uke\n{n}",
	}, "admin-1")
	if !pkgerrors.IsValidation(err) {
		t.Errorf("模板含换行应返回 ValidationError，实际: %v", err)
	}
	if len(env.periods.periods) != 0 {
		t.Error("校验失败不应写入任何时段")
	}
}
