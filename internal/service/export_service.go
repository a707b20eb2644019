package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 执行记录导出为 Excel (.xlsx)：分配表 + 审计日志两个 Sheet，仅管理员可用
//   - 参与者的已发布分配导出为 iCalendar，全天事件，退房日为 DTEND
//   - 导出内容由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportExecution 导出执行记录为 Excel
	ExportExecution(ctx context.Context, drawingID, executionID string) (*bytes.Buffer, string, error)
	// ExportMyCalendar 导出当前用户的已发布分配为 .ics
	ExportMyCalendar(ctx context.Context, drawingID, userID string) ([]byte, string, error)
}

type exportService struct {
	execution ExecutionService
	baseURL   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(execution ExecutionService, baseURL string, logger *zap.Logger) ExportService {
	return &exportService{
		execution: execution,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportExecution 导出执行记录为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "分配结果"：时段 / 开始 / 结束 / 公寓 / 参与者 / 来源 / 备注
//   - Sheet "审计日志"：每行一条日志
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportExecution(ctx context.Context, drawingID, executionID string) (*bytes.Buffer, string, error) {
	snap, err := s.execution.Snapshot(ctx, drawingID, executionID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 1. 分配结果
	sheetName := "分配结果"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 18)
	f.SetColWidth(sheetName, "E", "E", 32)
	f.SetColWidth(sheetName, "F", "F", 10)
	f.SetColWidth(sheetName, "G", "G", 30)

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 抽签结果（执行 %s）", snap.Drawing.Season, snap.Execution.ExecutionID))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"时段", "开始", "结束", "公寓", "参与者", "来源", "备注"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "G2", headerStyle)

	row := 3
	for _, a := range snap.detail().Allocations {
		values := []interface{}{
			a.PeriodDescription, a.StartDate, a.EndDate, a.ApartmentName,
			snap.who(a.UserID), a.Type, a.Comment,
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	// 2. 审计日志
	logSheet := "审计日志"
	f.NewSheet(logSheet)
	f.SetColWidth(logSheet, "A", "A", 100)
	for i, line := range snap.Execution.AuditLines() {
		f.SetCellValue(logSheet, cell("A", i+1), line)
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("抽签结果_%s_%s.xlsx", snap.Drawing.Season, shortID(snap.Execution.ExecutionID))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportMyCalendar 已发布分配导出为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportMyCalendar(ctx context.Context, drawingID, userID string) ([]byte, string, error) {
	snap, err := s.execution.PublishedSnapshot(ctx, drawingID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//my-page//cabin-draw//NO")
	cal.SetXWRCalName(snap.Drawing.Season)

	stamp := s.now().UTC()
	for _, a := range snap.sortedAllocations() {
		if a.UserID != userID {
			continue
		}
		period, ok := snap.Periods[a.PeriodID]
		if !ok {
			continue
		}
		apt := snap.Apartments[a.ApartmentID]

		evt := cal.AddEvent(fmt.Sprintf("%s@cabin-draw", a.AllocationID))
		evt.SetDtStampTime(stamp)
		evt.SetAllDayStartAt(period.StartDate)
		evt.SetAllDayEndAt(period.EndDate)
		evt.SetSummary(fmt.Sprintf("%s：%s", snap.Drawing.Season, apt.Name))
		evt.SetLocation(apt.Name)
		desc := periodLabel(period)
		if a.Comment != "" {
			desc += "\n" + a.Comment
		}
		evt.SetDescription(desc)
		if s.baseURL != "" {
			evt.SetURL(fmt.Sprintf("%s/drawings/%s/allocations", s.baseURL, drawingID))
		}
	}

	filename := fmt.Sprintf("cabin_%s.ics", shortID(drawingID))
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
