package parser

import (
	"context"
	"fmt"
)

// ImageRefParser 不做识别，只生成图片的markdown引用
type ImageRefParser struct{}

func (p *ImageRefParser) Name() string {
	return "image"
}

func (p *ImageRefParser) Parse(_ context.Context, in Input) (string, error) {
	return fmt.Sprintf("![%s](%s)", in.RecordName, in.DownloadURL), nil
}

// FallbackParser 无法解析的类型生成描述性stub文档，保留下载入口
type FallbackParser struct{}

func (p *FallbackParser) Name() string {
	return "fallback"
}

func (p *FallbackParser) Parse(_ context.Context, in Input) (string, error) {
	return fmt.Sprintf(`# %s

**File Type**: %s
**Description**: This file is of type %s which cannot be directly parsed into text content.
**Access**: [Open file](%s)`,
		in.RecordName, in.Mimetype, in.Mimetype, in.DownloadURL), nil
}
