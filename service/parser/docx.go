package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DOCXParser 解包OOXML文档，段落样式映射为markdown标题，表格转管道表格
type DOCXParser struct{}

func (p *DOCXParser) Name() string {
	return "docx"
}

type docxParagraph struct {
	Properties struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []string `xml:"r>t"`
}

type docxTable struct {
	Rows []struct {
		Cells []struct {
			Runs []string `xml:"p>r>t"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p *DOCXParser) Parse(_ context.Context, in Input) (string, error) {
	document, err := readZipEntry(in.Raw, "word/document.xml")
	if err != nil {
		return "", err
	}

	var blocks []string
	decoder := xml.NewDecoder(bytes.NewReader(document))
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document xml: %v", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		// 只看正文一级块：DecodeElement会吞掉子树，
		// 表格内的段落不会再次命中
		switch start.Name.Local {
		case "p":
			var para docxParagraph
			if err := decoder.DecodeElement(&para, &start); err != nil {
				continue
			}
			if block := renderDocxParagraph(para); block != "" {
				blocks = append(blocks, block)
			}
		case "tbl":
			var table docxTable
			if err := decoder.DecodeElement(&table, &start); err != nil {
				continue
			}
			if block := renderDocxTable(table); block != "" {
				blocks = append(blocks, block)
			}
		}
	}

	return fmt.Sprintf("# %s\n\n%s", in.RecordName, strings.Join(blocks, "\n\n")), nil
}

func renderDocxParagraph(para docxParagraph) string {
	text := strings.TrimSpace(strings.Join(para.Runs, ""))
	if text == "" {
		return ""
	}

	// 样式Heading1..Heading6映射为下一级markdown标题，
	// 文档名占住一级标题
	if level, ok := headingLevel(para.Properties.Style.Val); ok {
		return strings.Repeat("#", level+1) + " " + text
	}
	return text
}

func headingLevel(style string) (int, bool) {
	rest, found := strings.CutPrefix(style, "Heading")
	if !found {
		return 0, false
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0, false
	}
	return level, true
}

func renderDocxTable(table docxTable) string {
	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, strings.Join(cell.Runs, " "))
		}
		rows = append(rows, cells)
	}
	return markdownTable(rows)
}

func readZipEntry(raw []byte, name string) ([]byte, error) {
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %v", err)
	}

	for _, file := range archive.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %v", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
