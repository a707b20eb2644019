package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"my-page/backend/internal/dto"
)

// ── 愿望导入文件解析 ──

var (
	ErrImportNoData      = errors.New("导入文件无数据行（第一行为表头）")
	ErrImportBadHeader   = errors.New("导入文件表头缺少必要列（email/period/apartments/priority）")
	ErrImportUnsupported = errors.New("仅支持 .csv 与 .xlsx 文件")
	ErrImportTooManyRows = errors.New("数据行数超过上限")
)

// headerAliases 表头别名（英文 / 挪威语），匹配时忽略大小写
var headerAliases = map[string][]string{
	"email":      {"email", "e-post", "epost", "mail"},
	"period":     {"period", "periode", "week", "uke"},
	"apartments": {"apartments", "apartment", "leiligheter", "leilighet", "hytter", "hytte"},
	"priority":   {"priority", "prioritet", "prio"},
	"comment":    {"comment", "kommentar", "merknad"},
}

// ParseImportFile 按扩展名解析 CSV 或 XLSX 文件（首个工作表）
func (s *wishService) ParseImportFile(reader io.Reader, filename string) ([]dto.ImportWishRow, error) {
	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(reader)
	case ".xlsx":
		records, err = readXLSX(reader)
	default:
		return nil, ErrImportUnsupported
	}
	if err != nil {
		return nil, err
	}
	return parseImportRecords(records, s.importMaxRows)
}

func readCSV(reader io.Reader) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取CSV文件失败: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("无法解析CSV文件: %w", err)
	}
	return records, nil
}

func readXLSX(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	return rows, nil
}

// parseImportRecords 第一行为表头，其余为数据行；行号从 1 开始计（表头为第 1 行）
func parseImportRecords(records [][]string, maxRows int) ([]dto.ImportWishRow, error) {
	if len(records) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(records[0])
	for _, required := range []string{"email", "period", "apartments", "priority"} {
		if colIndex[required] < 0 {
			return nil, ErrImportBadHeader
		}
	}

	field := func(row []string, key string) string {
		idx := colIndex[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []dto.ImportWishRow
	for i := 1; i < len(records); i++ {
		record := records[i]
		item := dto.ImportWishRow{
			Line:              i + 1,
			Email:             field(record, "email"),
			PeriodDescription: field(record, "period"),
			Comment:           field(record, "comment"),
		}
		apartments := field(record, "apartments")
		priority := field(record, "priority")

		// 跳过全空行
		if item.Email == "" && item.PeriodDescription == "" && apartments == "" && priority == "" {
			continue
		}

		item.DesiredApartmentNames = splitApartmentNames(apartments)
		if priority == "" {
			item.ParseError = "优先级为空"
		} else if n, err := strconv.Atoi(priority); err != nil {
			item.ParseError = fmt.Sprintf("优先级不是整数: %s", priority)
		} else {
			item.Priority = n
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("%w %d 行", ErrImportTooManyRows, maxRows)
	}
	return rows, nil
}

// parseHeaderIndex 解析表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(headerAliases))
	for key := range headerAliases {
		idx[key] = -1
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for key, aliases := range headerAliases {
			for _, alias := range aliases {
				if lower == alias && idx[key] < 0 {
					idx[key] = i
				}
			}
		}
	}
	return idx
}

// splitApartmentNames 公寓名以 ; 或 | 分隔，保持原有顺序
func splitApartmentNames(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
