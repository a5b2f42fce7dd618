package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"multiscan/pkg/utils/logger"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSuccessful = "Successful Paths"
	sheetAll        = "All Attempted Paths"
	sheetServer     = "Server Info"
)

// GenerateExcelReport 生成 Excel 报告
func GenerateExcelReport(r *Report, outputPath string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("报告为空")
	}

	logger.Debugf("开始生成 Excel 报告: %s", outputPath)
	logger.Debugf("AllPaths: %d, SuccessfulPaths: %d", len(r.AllPaths), len(r.SuccessfulPaths))

	file := excelize.NewFile()
	defer file.Close()

	// Sheet 1: 发现的路径（默认 Sheet1 重命名）
	if err := file.SetSheetName("Sheet1", sheetSuccessful); err != nil {
		file.NewSheet(sheetSuccessful)
	}
	successRows := make([][]interface{}, 0, len(r.SuccessfulPaths))
	for _, p := range r.SuccessfulPaths {
		successRows = append(successRows, []interface{}{p.URL, p.StatusCode.String(), p.ContentLength, yesNo(p.DirectoryListing)})
	}
	if err := writeSheet(file, sheetSuccessful, []string{"URL", "状态码", "Content-length", "目录列表"}, successRows); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", sheetSuccessful, err)
	}

	// Sheet 2: 全部尝试记录
	file.NewSheet(sheetAll)
	allRows := make([][]interface{}, 0, len(r.AllPaths))
	for _, p := range r.AllPaths {
		allRows = append(allRows, []interface{}{p.URL, p.StatusCode, p.ContentLength, yesNo(p.DirectoryListing), p.Source, p.Note})
	}
	if err := writeSheet(file, sheetAll, []string{"URL", "状态码", "Content-length", "目录列表", "来源", "说明"}, allRows); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", sheetAll, err)
	}

	// Sheet 3: 服务器信息
	file.NewSheet(sheetServer)
	targets := make([]string, 0, len(r.ServerInfo))
	for t := range r.ServerInfo {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	serverRows := make([][]interface{}, 0, len(targets))
	for _, t := range targets {
		info := r.ServerInfo[t]
		serverRows = append(serverRows, []interface{}{t, info.Server, info.XPoweredBy, info.FrameworkHint, strings.Join(info.Technologies, ", ")})
	}
	if err := writeSheet(file, sheetServer, []string{"目标", "Server", "X-Powered-By", "框架推断", "技术栈"}, serverRows); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", sheetServer, err)
	}

	index, _ := file.GetSheetIndex(sheetSuccessful)
	file.SetActiveSheet(index)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := file.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("保存 Excel 报告失败: %w", err)
	}
	return outputPath, nil
}

// writeSheet 将数据写入指定的 Excel Sheet
func writeSheet(file *excelize.File, sheetName string, headers []string, rows [][]interface{}) error {
	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	contentStyle, err := file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	// 首列为URL，其余列按表头宽度
	for idx, header := range headers {
		col, _ := excelize.ColumnNumberToName(idx + 1)
		width := 18.0
		switch {
		case idx == 0:
			width = 50
		case header == "说明" || header == "技术栈":
			width = 45
		}
		if err := file.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(idx+1, 1)
		if err := file.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := file.SetCellStyle(sheetName, "A1", headerEnd, headerStyle); err != nil {
		return err
	}

	for rowIdx, row := range rows {
		// 行号从2开始
		line := rowIdx + 2
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, line)
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, line)
		end, _ := excelize.CoordinatesToCellName(len(headers), line)
		if err := file.SetCellStyle(sheetName, start, end, contentStyle); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
