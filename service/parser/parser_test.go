package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"erp-knowledge-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testInput(name, mimetype string, raw []byte) Input {
	return Input{
		Resource:    &model.Resource{ID: 1},
		RecordName:  name,
		FieldName:   "raw",
		Mimetype:    mimetype,
		Raw:         raw,
		DownloadURL: "/api/attachments/1/download",
	}
}

func TestSelectDispatch(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		kind     model.ParserKind
		name     string
		mimetype string
		want     string
	}{
		{model.ParserDefault, "a.pdf", "application/pdf", "pdf"},
		{model.ParserDefault, "notes.md", "application/octet-stream", "text"},
		{model.ParserDefault, "page", "text/html", "html"},
		{model.ParserDefault, "page", "application/xhtml+xml", "html"},
		{model.ParserDefault, "data.csv", "text/csv", "csv"},
		{model.ParserDefault, "data.csv", "application/octet-stream", "csv"},
		{model.ParserDefault, "readme", "text/plain", "text"},
		{model.ParserDefault, "photo.png", "image/png", "ocr"},
		{model.ParserDefault, "record", "application/json", "json"},
		{model.ParserDefault, "doc.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
		{model.ParserDefault, "book.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"},
		{model.ParserDefault, "deck.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx"},
		{model.ParserDefault, "blob.bin", "application/octet-stream", "fallback"},
		{model.ParserJSON, "anything", "text/plain", "json"},
		{model.ParserOCR, "anything", "text/plain", "ocr"},
	}

	for _, tt := range tests {
		p := registry.Select(tt.kind, tt.name, tt.mimetype)
		assert.Equal(t, tt.want, p.Name(), "kind=%s name=%s mimetype=%s", tt.kind, tt.name, tt.mimetype)
	}
}

func TestTextParserStripsBOM(t *testing.T) {
	p := &TextParser{}
	out, err := p.Parse(context.Background(), testInput("n", "text/plain", []byte("\uFEFF  hello\n")))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestHTMLParser(t *testing.T) {
	p := &HTMLParser{}
	out, err := p.Parse(context.Background(), testInput("n", "text/html",
		[]byte("<h1>Refunds</h1><p>Money back within <strong>30 days</strong>.</p>")))
	require.NoError(t, err)
	assert.Contains(t, out, "# Refunds")
	assert.Contains(t, out, "**30 days**")
}

func TestJSONParser(t *testing.T) {
	p := &JSONParser{}
	out, err := p.Parse(context.Background(), testInput("SO0042", "application/json",
		[]byte(`{"name":"SO0042","note":"rush order"}`)))
	require.NoError(t, err)
	assert.Contains(t, out, "# SO0042")
	assert.Contains(t, out, "## JSON Data")
	assert.Contains(t, out, `"note": "rush order"`)

	_, err = p.Parse(context.Background(), testInput("n", "application/json", []byte("{broken")))
	assert.Error(t, err)
}

func TestCSVParser(t *testing.T) {
	p := &CSVParser{}

	out, err := p.Parse(context.Background(), testInput("products", "text/csv",
		[]byte("sku,price\nA-1,10\nB-2,20\n")))
	require.NoError(t, err)
	assert.Contains(t, out, "# products")
	assert.Contains(t, out, "| sku | price |")
	assert.Contains(t, out, "| --- | --- |")
	assert.Contains(t, out, "| A-1 | 10 |")

	// 分号分隔符自动探测
	out, err = p.Parse(context.Background(), testInput("products", "text/csv",
		[]byte("sku;price\nA-1;10\n")))
	require.NoError(t, err)
	assert.Contains(t, out, "| sku | price |")

	out, err = p.Parse(context.Background(), testInput("empty", "text/csv", nil))
	require.NoError(t, err)
	assert.Contains(t, out, "*Empty file*")
}

func TestMarkdownTableEscapesCells(t *testing.T) {
	out := markdownTable([][]string{
		{"name", "note"},
		{"a|b", "line1\nline2"},
	})
	assert.Contains(t, out, `a\|b`)
	assert.Contains(t, out, "line1 line2")
}

func TestMarkdownTablePadsRaggedRows(t *testing.T) {
	out := markdownTable([][]string{
		{"a", "b", "c"},
		{"only"},
	})
	assert.Contains(t, out, "| only |  |  |")
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDOCXParser(t *testing.T) {
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Refund Policy</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>Money back within </w:t></w:r>
      <w:r><w:t>30 days.</w:t></w:r>
    </w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>region</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>days</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>EU</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>30</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`
	raw := buildZip(t, map[string]string{"word/document.xml": document})

	p := &DOCXParser{}
	out, err := p.Parse(context.Background(), testInput("policy.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", raw))
	require.NoError(t, err)
	assert.Contains(t, out, "# policy.docx")
	assert.Contains(t, out, "## Refund Policy")
	assert.Contains(t, out, "Money back within 30 days.")
	assert.Contains(t, out, "| region | days |")
	assert.Contains(t, out, "| EU | 30 |")
}

func TestPPTXParser(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>
  </p:spTree></p:cSld>
</p:sld>`
	}
	note := `<?xml version="1.0"?>
<p:notes xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
         xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree>
    <p:sp><p:txBody><a:p><a:r><a:t>Mention the new pricing.</a:t></a:r></a:p></p:txBody></p:sp>
  </p:spTree></p:cSld>
</p:notes>`

	raw := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":           slide("Roadmap"),
		"ppt/slides/slide1.xml":           slide("Welcome"),
		"ppt/notesSlides/notesSlide1.xml": note,
	})

	p := &PPTXParser{}
	out, err := p.Parse(context.Background(), testInput("deck.pptx",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation", raw))
	require.NoError(t, err)
	assert.Contains(t, out, "# deck.pptx")
	assert.Contains(t, out, "## Slide 1")
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "### Notes")
	assert.Contains(t, out, "Mention the new pricing.")
	assert.Contains(t, out, "## Slide 2")
	// 幻灯片按序号排序
	assert.Less(t, bytes.Index([]byte(out), []byte("Welcome")), bytes.Index([]byte(out), []byte("Roadmap")))
}

func TestXLSXParser(t *testing.T) {
	workbook := excelize.NewFile()
	require.NoError(t, workbook.SetCellValue("Sheet1", "A1", "sku"))
	require.NoError(t, workbook.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, workbook.SetCellValue("Sheet1", "A2", "A-1"))
	require.NoError(t, workbook.SetCellValue("Sheet1", "B2", 5))
	buf, err := workbook.WriteToBuffer()
	require.NoError(t, err)

	p := &XLSXParser{}
	out, err := p.Parse(context.Background(), testInput("stock.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes()))
	require.NoError(t, err)
	assert.Contains(t, out, "# stock.xlsx")
	assert.Contains(t, out, "## Sheet: Sheet1")
	assert.Contains(t, out, "| sku | qty |")
	assert.Contains(t, out, "| A-1 | 5 |")
}

func TestCorruptOfficeFileFallsBackToStub(t *testing.T) {
	registry := NewRegistry()
	p := registry.Select(model.ParserDefault, "broken.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")

	out, err := p.Parse(context.Background(), testInput("broken.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		[]byte("this is not a zip archive")))
	require.NoError(t, err)
	assert.Contains(t, out, "# broken.docx")
	assert.Contains(t, out, "**File Type**")
	assert.Contains(t, out, "[Open file](/api/attachments/1/download)")
}

// 失败的csv解析和损坏的office文件走同一条降级路径
type erroringParser struct{}

func (p *erroringParser) Name() string { return "csv" }

func (p *erroringParser) Parse(context.Context, Input) (string, error) {
	return "", context.DeadlineExceeded
}

func TestCSVParseFailureFallsBackToStub(t *testing.T) {
	registry := NewRegistry()
	p := registry.Select(model.ParserDefault, "data.csv", "text/csv")
	_, wrapped := p.(*stubFallbackParser)
	assert.True(t, wrapped)

	degraded := &stubFallbackParser{inner: &erroringParser{}, stub: &FallbackParser{}}
	out, err := degraded.Parse(context.Background(),
		testInput("data.csv", "text/csv", []byte("a,b\n1,2\n")))
	require.NoError(t, err)
	assert.Contains(t, out, "# data.csv")
	assert.Contains(t, out, "**File Type**")

	// 正常csv经过包装后行为不变
	out, err = p.Parse(context.Background(),
		testInput("data.csv", "text/csv", []byte("a,b\n1,2\n")))
	require.NoError(t, err)
	assert.Contains(t, out, "| a | b |")
}

func TestImageWithoutOCREngineKeepsReference(t *testing.T) {
	registry := NewRegistry()
	p := registry.Select(model.ParserDefault, "chart.png", "image/png")

	out, err := p.Parse(context.Background(), testInput("chart.png", "image/png", []byte{0x89, 0x50}))
	require.NoError(t, err)
	assert.Contains(t, out, "![chart.png](/api/attachments/1/download)")
}

func TestRegistryGetUnknownParser(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Get("telepathy")
	assert.Error(t, err)
}
