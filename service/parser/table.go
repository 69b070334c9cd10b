package parser

import "strings"

// markdownTable 把行数据渲染为带表头分隔行的markdown管道表格，
// 第一行视为表头，单元格内的管道符转义
func markdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range rows {
		cells := make([]string, maxCols)
		for j := range cells {
			if j < len(row) {
				cells[j] = escapeCell(row[j])
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")

		if i == 0 {
			separators := make([]string, maxCols)
			for j := range separators {
				separators[j] = "---"
			}
			b.WriteString("| " + strings.Join(separators, " | ") + " |\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCell(cell string) string {
	cell = strings.ReplaceAll(cell, "|", "\\|")
	cell = strings.ReplaceAll(cell, "\n", " ")
	return strings.TrimSpace(cell)
}
