package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

func setupWishEnv(status string) *testEnv {
	env := setupTestEnv()
	env.users.add("user-a", "Anna", "anna@example.com", "member")
	env.users.add("user-b", "Bjørn", "bjorn@example.com", "member")
	env.addApartment("apt-x", "Fjellstua", 1)
	env.addApartment("apt-y", "Strandhytta", 2)
	env.addDrawing("d1", status)
	env.addPeriod("p1", "d1", "Uke 27", "2026-07-01", "2026-07-08", "apt-y")
	env.addPeriod("p2", "d1", "Uke 28", "2026-07-08", "2026-07-15")
	return env
}

// ── Submit 测试 ──

func TestWishService_Submit_Success(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)

	result, err := env.svc.Wish.Submit(context.Background(), "d1", &dto.SubmitWishRequest{
		PeriodID:            "p2",
		Priority:            1,
		DesiredApartmentIDs: []string{"apt-y", "apt-x"},
	}, memberCaller)
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if result.UserID != "user-a" {
		t.Errorf("默认应为当前用户提交，实际=%s", result.UserID)
	}
	if result.User == nil || result.User.Name != "Anna" {
		t.Error("响应应包含用户信息")
	}
	if strings.Join(result.DesiredApartmentIDs, ",") != "apt-y,apt-x" {
		t.Errorf("愿望顺序应保持不变，实际=%v", result.DesiredApartmentIDs)
	}
}

func TestWishService_Submit_OverwritesSamePriority(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusDraft)
	ctx := context.Background()

	for _, period := range []string{"p1", "p2"} {
		_, err := env.svc.Wish.Submit(ctx, "d1", &dto.SubmitWishRequest{
			PeriodID: period, Priority: 1, DesiredApartmentIDs: []string{"apt-x"},
		}, memberCaller)
		if err != nil {
			t.Fatalf("Submit 应成功: %v", err)
		}
	}

	mine, _ := env.svc.Wish.ListMine(ctx, "d1", "user-a")
	if len(mine) != 1 {
		t.Fatalf("同一优先级重复提交应覆盖，实际愿望数=%d", len(mine))
	}
	if mine[0].PeriodID != "p2" {
		t.Errorf("应保留最后一次提交，实际PeriodID=%s", mine[0].PeriodID)
	}
}

func TestWishService_Submit_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.SubmitWishRequest
		wantRef bool
	}{
		{"优先级超出上限", dto.SubmitWishRequest{PeriodID: "p2", Priority: 3, DesiredApartmentIDs: []string{"apt-x"}}, false},
		{"公寓重复", dto.SubmitWishRequest{PeriodID: "p2", Priority: 1, DesiredApartmentIDs: []string{"apt-x", "apt-x"}}, false},
		{"公寓在时段被排除", dto.SubmitWishRequest{PeriodID: "p1", Priority: 1, DesiredApartmentIDs: []string{"apt-y"}}, false},
		{"未知公寓", dto.SubmitWishRequest{PeriodID: "p2", Priority: 1, DesiredApartmentIDs: []string{"apt-z"}}, true},
		{"时段不属于抽签", dto.SubmitWishRequest{PeriodID: "p-other", Priority: 1, DesiredApartmentIDs: []string{"apt-x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupWishEnv(model.DrawingStatusOpen)
			_, err := env.svc.Wish.Submit(context.Background(), "d1", &tt.req, memberCaller)
			if tt.wantRef && !pkgerrors.IsReference(err) {
				t.Errorf("期望 ReferenceError，实际: %v", err)
			}
			if !tt.wantRef && !pkgerrors.IsValidation(err) {
				t.Errorf("期望 ValidationError，实际: %v", err)
			}
			if len(env.wishes.wishes) != 0 {
				t.Error("校验失败不应写入愿望")
			}
		})
	}
}

func TestWishService_Submit_InactiveApartment(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)
	env.apartments.apartments["apt-x"].IsActive = false

	_, err := env.svc.Wish.Submit(context.Background(), "d1", &dto.SubmitWishRequest{
		PeriodID: "p2", Priority: 1, DesiredApartmentIDs: []string{"apt-x"},
	}, memberCaller)
	if !pkgerrors.IsValidation(err) {
		t.Errorf("停用公寓应返回 ValidationError，实际: %v", err)
	}
}

func TestWishService_Submit_OnBehalf(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)
	req := &dto.SubmitWishRequest{UserID: "user-b", PeriodID: "p2", Priority: 1, DesiredApartmentIDs: []string{"apt-x"}}

	if _, err := env.svc.Wish.Submit(context.Background(), "d1", req, memberCaller); !errors.Is(err, ErrForbidden) {
		t.Errorf("普通成员代他人提交应返回 ErrForbidden，实际: %v", err)
	}

	result, err := env.svc.Wish.Submit(context.Background(), "d1", req, adminCaller)
	if err != nil {
		t.Fatalf("管理员代提交应成功: %v", err)
	}
	if result.UserID != "user-b" {
		t.Errorf("期望UserID=user-b，实际=%s", result.UserID)
	}
}

// closedStatuses 不再接受愿望变更的抽签状态
var closedStatuses = []string{
	model.DrawingStatusLocked,
	model.DrawingStatusDrawn,
	model.DrawingStatusPublished,
}

func TestWishService_Submit_ClosedStatusRejected(t *testing.T) {
	for _, status := range closedStatuses {
		t.Run(status, func(t *testing.T) {
			env := setupWishEnv(status)

			_, err := env.svc.Wish.Submit(context.Background(), "d1", &dto.SubmitWishRequest{
				PeriodID: "p2", Priority: 1, DesiredApartmentIDs: []string{"apt-x"},
			}, memberCaller)
			var stErr *pkgerrors.StateTransitionError
			if !errors.As(err, &stErr) {
				t.Fatalf("%s 状态提交应返回 StateTransitionError，实际: %v", status, err)
			}
			if stErr.Op != opSubmitWish {
				t.Errorf("期望Op=%s，实际=%s", opSubmitWish, stErr.Op)
			}
			if len(env.wishes.wishes) != 0 {
				t.Error("被拒绝的提交不应写入愿望")
			}
		})
	}
}

// ── Delete 测试 ──

func TestWishService_Delete_OwnerOnly(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)
	env.addWish("w-b", "d1", "user-b", "p2", 1, "apt-x")

	if err := env.svc.Wish.Delete(context.Background(), "d1", "w-b", memberCaller); !errors.Is(err, ErrForbidden) {
		t.Errorf("删除他人愿望应返回 ErrForbidden，实际: %v", err)
	}
	if err := env.svc.Wish.Delete(context.Background(), "d1", "w-b", adminCaller); err != nil {
		t.Fatalf("管理员删除应成功: %v", err)
	}
	if len(env.wishes.wishes) != 0 {
		t.Error("愿望应被删除")
	}
}

func TestWishService_Delete_ClosedStatusRejected(t *testing.T) {
	for _, status := range closedStatuses {
		t.Run(status, func(t *testing.T) {
			env := setupWishEnv(status)
			env.addWish("w-a", "d1", "user-a", "p2", 1, "apt-x")

			err := env.svc.Wish.Delete(context.Background(), "d1", "w-a", adminCaller)
			if !pkgerrors.IsStateTransition(err) {
				t.Fatalf("%s 状态删除应返回 StateTransitionError，实际: %v", status, err)
			}
			if len(env.wishes.wishes) != 1 {
				t.Error("被拒绝的删除不应移除愿望")
			}
		})
	}
}

// ── BulkImport 测试 ──

func TestWishService_BulkImport_PartialSuccess(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)

	rows := []dto.ImportWishRow{
		{Line: 2, Email: "ANNA@example.com", PeriodDescription: "Uke 28", DesiredApartmentNames: []string{"strandhytta", "Fjellstua"}, Priority: 1},
		{Line: 3, Email: "nobody@example.com", PeriodDescription: "Uke 28", DesiredApartmentNames: []string{"Fjellstua"}, Priority: 1},
		{Line: 4, Email: "bjorn@example.com", PeriodDescription: "Uke 28", DesiredApartmentNames: []string{"Slottet"}, Priority: 1},
		{Line: 5, Email: "bjorn@example.com", PeriodDescription: "Uke 27", DesiredApartmentNames: []string{"Fjellstua"}, Priority: 2},
		{Line: 6, Email: "bjorn@example.com", ParseError: "优先级不是整数: en"},
	}

	resp, err := env.svc.Wish.BulkImport(context.Background(), "d1", rows, "admin-1")
	if err != nil {
		t.Fatalf("BulkImport 不应整体失败: %v", err)
	}
	if resp.TotalLines != 5 || resp.SuccessCount != 2 || resp.ErrorCount != 3 {
		t.Errorf("期望 5/2/3，实际 %d/%d/%d", resp.TotalLines, resp.SuccessCount, resp.ErrorCount)
	}
	wantLines := []int{3, 4, 6}
	for i, e := range resp.Errors {
		if e.Line != wantLines[i] {
			t.Errorf("第 %d 个错误期望行号=%d，实际=%d", i+1, wantLines[i], e.Line)
		}
	}
	if len(env.wishes.wishes) != 2 {
		t.Errorf("期望写入 2 条愿望，实际=%d", len(env.wishes.wishes))
	}
}

func TestWishService_BulkImport_ClosedStatusRejectsWholeBatch(t *testing.T) {
	rows := []dto.ImportWishRow{
		{Line: 2, Email: "anna@example.com", PeriodDescription: "Uke 28", DesiredApartmentNames: []string{"Fjellstua"}, Priority: 1},
	}
	for _, status := range closedStatuses {
		t.Run(status, func(t *testing.T) {
			env := setupWishEnv(status)

			_, err := env.svc.Wish.BulkImport(context.Background(), "d1", rows, "admin-1")
			if !pkgerrors.IsStateTransition(err) {
				t.Errorf("%s 状态导入应返回 StateTransitionError，实际: %v", status, err)
			}
			if len(env.wishes.wishes) != 0 {
				t.Error("整体拒绝时不应处理任何行")
			}
		})
	}
}

// ── ParseImportFile 测试 ──

func TestWishService_ParseImportFile_CSV(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)
	csvData := "\xef\xbb\xbfPrioritet,E-post,Periode,Leiligheter,Kommentar\n" +
		"1,anna@example.com,Uke 27,Fjellstua;Strandhytta,\n" +
		",,,,\n" +
		"en,bjorn@example.com,Uke 28,Fjellstua | Strandhytta,helst strand\n"

	rows, err := env.svc.Wish.ParseImportFile(strings.NewReader(csvData), "wishes.csv")
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("空行应被跳过，期望 2 行，实际=%d", len(rows))
	}
	if rows[0].Line != 2 || rows[0].Priority != 1 || rows[0].Email != "anna@example.com" {
		t.Errorf("第一行解析不符: %+v", rows[0])
	}
	if strings.Join(rows[0].DesiredApartmentNames, ",") != "Fjellstua,Strandhytta" {
		t.Errorf("公寓列表解析不符: %v", rows[0].DesiredApartmentNames)
	}
	if rows[1].Line != 4 || rows[1].ParseError == "" {
		t.Errorf("非法优先级应记录解析错误: %+v", rows[1])
	}
	if strings.Join(rows[1].DesiredApartmentNames, ",") != "Fjellstua,Strandhytta" {
		t.Errorf("| 分隔的公寓列表解析不符: %v", rows[1].DesiredApartmentNames)
	}
	if rows[1].Comment != "helst strand" {
		t.Errorf("备注解析不符: %s", rows[1].Comment)
	}
}

func TestWishService_ParseImportFile_XLSX(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]interface{}{"email", "period", "apartments", "priority"})
	f.SetSheetRow(sheet, "A2", &[]interface{}{"anna@example.com", "Uke 27", "Fjellstua", 2})
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成测试文件失败: %v", err)
	}
	f.Close()

	rows, err := env.svc.Wish.ParseImportFile(buf, "wishes.xlsx")
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 1 || rows[0].Priority != 2 || rows[0].PeriodDescription != "Uke 27" {
		t.Errorf("XLSX 解析不符: %+v", rows)
	}
}

func TestWishService_ParseImportFile_Errors(t *testing.T) {
	env := setupWishEnv(model.DrawingStatusOpen)

	_, err := env.svc.Wish.ParseImportFile(strings.NewReader("email,period\nanna@example.com,Uke 27\n"), "wishes.csv")
	if !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("缺少列应返回 ErrImportBadHeader，实际: %v", err)
	}

	_, err = env.svc.Wish.ParseImportFile(strings.NewReader("email,period,apartments,priority\n"), "wishes.csv")
	if !errors.Is(err, ErrImportNoData) {
		t.Errorf("无数据行应返回 ErrImportNoData，实际: %v", err)
	}

	_, err = env.svc.Wish.ParseImportFile(strings.NewReader(""), "wishes.txt")
	if !errors.Is(err, ErrImportUnsupported) {
		t.Errorf("不支持的扩展名应返回 ErrImportUnsupported，实际: %v", err)
	}
}
