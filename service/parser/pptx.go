package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideEntryRegex = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXParser 按幻灯片序号抽取文本框和表格，
// 每页一个"## Slide N"小节，演讲者备注附在页尾
type PPTXParser struct{}

func (p *PPTXParser) Name() string {
	return "pptx"
}

type pptxShape struct {
	Paragraphs []struct {
		Runs []string `xml:"r>t"`
	} `xml:"txBody>p"`
}

type pptxTable struct {
	Rows []struct {
		Cells []struct {
			Runs []string `xml:"txBody>p>r>t"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p *PPTXParser) Parse(_ context.Context, in Input) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(in.Raw), int64(len(in.Raw)))
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %v", err)
	}

	slides := make(map[int][]byte)
	notes := make(map[int][]byte)
	for _, file := range archive.File {
		if match := slideEntryRegex.FindStringSubmatch(file.Name); match != nil {
			n, _ := strconv.Atoi(match[1])
			if data, err := readArchiveFile(file); err == nil {
				slides[n] = data
			}
			continue
		}
		var n int
		if _, err := fmt.Sscanf(file.Name, "ppt/notesSlides/notesSlide%d.xml", &n); err == nil {
			if data, err := readArchiveFile(file); err == nil {
				notes[n] = data
			}
		}
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found in archive")
	}

	numbers := make([]int, 0, len(slides))
	for n := range slides {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n", in.RecordName))
	for _, n := range numbers {
		b.WriteString(fmt.Sprintf("\n## Slide %d\n\n", n))

		blocks := extractSlideBlocks(slides[n])
		if len(blocks) == 0 {
			b.WriteString("*Empty slide*\n")
		} else {
			b.WriteString(strings.Join(blocks, "\n\n") + "\n")
		}

		if note := extractNoteText(notes[n]); note != "" {
			b.WriteString(fmt.Sprintf("\n### Notes\n\n%s\n", note))
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// extractSlideBlocks 遍历幻灯片xml的一级形状和表格，保持出现顺序
func extractSlideBlocks(data []byte) []string {
	var blocks []string
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "sp":
			var shape pptxShape
			if err := decoder.DecodeElement(&shape, &start); err != nil {
				continue
			}
			if text := renderPptxShape(shape); text != "" {
				blocks = append(blocks, text)
			}
		case "tbl":
			var table pptxTable
			if err := decoder.DecodeElement(&table, &start); err != nil {
				continue
			}
			if text := renderPptxTable(table); text != "" {
				blocks = append(blocks, text)
			}
		}
	}
	return blocks
}

func renderPptxShape(shape pptxShape) string {
	lines := make([]string, 0, len(shape.Paragraphs))
	for _, para := range shape.Paragraphs {
		if text := strings.TrimSpace(strings.Join(para.Runs, "")); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func renderPptxTable(table pptxTable) string {
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

func extractNoteText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var lines []string
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "sp" {
			continue
		}
		var shape pptxShape
		if err := decoder.DecodeElement(&shape, &start); err != nil {
			continue
		}
		if text := renderPptxShape(shape); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

func readArchiveFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
