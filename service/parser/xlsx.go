package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser 每个工作表渲染为"## Sheet:"小节下的markdown表格
type XLSXParser struct{}

func (p *XLSXParser) Name() string {
	return "xlsx"
}

func (p *XLSXParser) Parse(_ context.Context, in Input) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(in.Raw))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %v", err)
	}
	defer workbook.Close()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n", in.RecordName))

	for _, sheet := range workbook.GetSheetList() {
		b.WriteString(fmt.Sprintf("\n## Sheet: %s\n\n", sheet))

		rows, err := workbook.GetRows(sheet)
		if err != nil {
			slog.Warn("Failed to read sheet",
				"resource_id", in.Resource.ID,
				"sheet", sheet,
				"err", err)
			rows = nil
		}
		rows = trimEmptyRows(rows)

		if len(rows) == 0 {
			b.WriteString("*Empty sheet*\n")
			continue
		}
		b.WriteString(markdownTable(rows) + "\n")
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func trimEmptyRows(rows [][]string) [][]string {
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, row)
		}
	}
	return kept
}
