package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

const delimiterSampleSize = 4096

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// CSVParser CSV转markdown表格，分隔符从样本自动探测
type CSVParser struct{}

func (p *CSVParser) Name() string {
	return "csv"
}

func (p *CSVParser) Parse(_ context.Context, in Input) (string, error) {
	raw := bytes.TrimPrefix(in.Raw, []byte("\uFEFF"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffDelimiter(raw)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read csv: %v", err)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("# %s\n\n*Empty file*", in.RecordName), nil
	}

	return fmt.Sprintf("# %s\n\n%s", in.RecordName, markdownTable(rows)), nil
}

// sniffDelimiter 在文件头部样本里数候选分隔符出现次数，
// 取最多的一个，全部为零时默认逗号
func sniffDelimiter(raw []byte) rune {
	sample := raw
	if len(sample) > delimiterSampleSize {
		sample = sample[:delimiterSampleSize]
	}
	text := string(sample)

	best := ','
	bestCount := 0
	for _, candidate := range candidateDelimiters {
		count := strings.Count(text, string(candidate))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}
