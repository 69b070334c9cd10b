package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser 逐页抽取PDF文本，页间以"## Page N"标题分隔。
// 配置了图片落盘时同时抽取内嵌图片并在对应页追加markdown引用。
type PDFParser struct {
	images ImageSink
}

func (p *PDFParser) Name() string {
	return "pdf"
}

func (p *PDFParser) Parse(ctx context.Context, in Input) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(in.Raw), int64(len(in.Raw)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %v", err)
	}

	imageRefs := p.extractImages(ctx, in)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n", in.RecordName))

	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("Failed to extract pdf page text",
				"resource_id", in.Resource.ID,
				"page", i,
				"err", err)
			text = ""
		}

		b.WriteString(fmt.Sprintf("\n## Page %d\n\n%s\n", i, strings.TrimSpace(text)))
		for _, ref := range imageRefs[i] {
			b.WriteString("\n" + ref + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// extractImages 内嵌图片抽取是尽力而为：
// 任何失败只记日志，不影响文本解析
func (p *PDFParser) extractImages(ctx context.Context, in Input) (refs map[int][]string) {
	refs = make(map[int][]string)
	if p.images == nil {
		return refs
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("Recovered from pdf image extraction panic",
				"resource_id", in.Resource.ID,
				"err", rec)
		}
	}()

	pages, err := pdfapi.ExtractImagesRaw(
		bytes.NewReader(in.Raw), nil, pdfcpumodel.NewDefaultConfiguration())
	if err != nil {
		slog.Warn("Failed to extract pdf images",
			"resource_id", in.Resource.ID,
			"err", err)
		return refs
	}

	for _, pageImages := range pages {
		for objNr, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}

			fileType := img.FileType
			if fileType == "" {
				fileType = "png"
			}
			name := fmt.Sprintf("image_%d_%d.%s", img.PageNr, objNr, fileType)

			url, err := p.images.SaveImage(ctx, in.Resource.ID, name, "image/"+fileType, data)
			if err != nil {
				slog.Warn("Failed to save pdf image",
					"resource_id", in.Resource.ID,
					"image", name,
					"err", err)
				continue
			}
			refs[img.PageNr] = append(refs[img.PageNr], fmt.Sprintf("![%s](%s)", name, url))
		}
	}
	return refs
}
