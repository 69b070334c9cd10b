package parser

import (
	"context"
	"fmt"
	"strings"

	"erp-knowledge-backend/model"

	"github.com/tmc/langchaingo/llms"
)

// Input 单个待解析字段及其上下文
type Input struct {
	Resource   *model.Resource
	RecordName string
	FieldName  string
	Mimetype   string
	Raw        []byte

	// DownloadURL 原始记录的访问链接，供stub和图片引用使用
	DownloadURL string
}

// Parser 把原始字段内容转换为markdown文本
type Parser interface {
	Name() string
	Parse(ctx context.Context, in Input) (string, error)
}

// ImageSink 保存解析过程中抽取的图片（如PDF内嵌图），返回可引用的URL
type ImageSink interface {
	SaveImage(ctx context.Context, resourceID uint, name, mimetype string, data []byte) (string, error)
}

// ModelFactory 按模型名创建chat模型，供OCR纠错使用
type ModelFactory interface {
	ForModel(model string) (llms.Model, error)
}

// Registry 解析器注册表，启动时构建一次，
// 按资源的显式选择或mimetype分发
type Registry struct {
	parsers map[string]Parser
	ocr     OCREngine
}

type RegistryOption func(*Registry)

// WithOCREngine 配置OCR引擎，未配置时图片资源退化为图片引用
func WithOCREngine(engine OCREngine) RegistryOption {
	return func(r *Registry) {
		r.ocr = engine
	}
}

// WithImageSink 配置图片落盘能力，未配置时PDF跳过内嵌图片抽取
func WithImageSink(sink ImageSink) RegistryOption {
	return func(r *Registry) {
		pdf, ok := r.parsers["pdf"].(*PDFParser)
		if ok {
			pdf.images = sink
		}
	}
}

// WithOCRCorrection 配置OCR纠错的chat模型工厂
func WithOCRCorrection(factory ModelFactory) RegistryOption {
	return func(r *Registry) {
		ocr, ok := r.parsers["ocr"].(*OCRParser)
		if ok {
			ocr.models = factory
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		parsers: map[string]Parser{
			"text":     &TextParser{},
			"html":     &HTMLParser{},
			"json":     &JSONParser{},
			"csv":      &CSVParser{},
			"pdf":      &PDFParser{},
			"docx":     &DOCXParser{},
			"xlsx":     &XLSXParser{},
			"pptx":     &PPTXParser{},
			"image":    &ImageRefParser{},
			"fallback": &FallbackParser{},
		},
	}

	// OCR解析器依赖registry的engine配置，最后接线
	r.parsers["ocr"] = &OCRParser{registry: r}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get 按名称取解析器
func (r *Registry) Get(name string) (Parser, error) {
	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser: %s", name)
	}
	return p, nil
}

// Select 解析器分发，按优先级首个命中：
// 显式选择 > mimetype规则 > 通用stub
func (r *Registry) Select(kind model.ParserKind, recordName, mimetype string) Parser {
	if kind == model.ParserOCR {
		return r.parsers["ocr"]
	}
	if kind != "" && kind != model.ParserDefault {
		if p, ok := r.parsers[string(kind)]; ok {
			return p
		}
	}

	lowerName := strings.ToLower(recordName)

	switch {
	case mimetype == "application/pdf":
		return r.withStubFallback("pdf")
	// 特殊情况：平台会把markdown误判成application/octet-stream
	case mimetype == "application/octet-stream" && strings.Contains(lowerName, ".md"):
		return r.parsers["text"]
	case strings.Contains(mimetype, "html"):
		return r.parsers["html"]
	case strings.HasPrefix(mimetype, "text/csv"):
		return r.withStubFallback("csv")
	case strings.HasPrefix(mimetype, "text/"):
		return r.parsers["text"]
	case strings.HasPrefix(mimetype, "image/"):
		return r.parsers["ocr"]
	case mimetype == "application/json":
		return r.parsers["json"]
	case mimetype == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return r.withStubFallback("docx")
	case mimetype == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return r.withStubFallback("xlsx")
	case mimetype == "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return r.withStubFallback("pptx")
	case mimetype == "application/octet-stream" && strings.HasSuffix(lowerName, ".csv"):
		return r.withStubFallback("csv")
	default:
		return r.parsers["fallback"]
	}
}

// withStubFallback 包装二进制格式解析器：
// 任何解析失败都降级为描述性stub文档，从不向上抛错
func (r *Registry) withStubFallback(name string) Parser {
	return &stubFallbackParser{
		inner: r.parsers[name],
		stub:  r.parsers["fallback"],
	}
}

type stubFallbackParser struct {
	inner Parser
	stub  Parser
}

func (p *stubFallbackParser) Name() string {
	return p.inner.Name()
}

func (p *stubFallbackParser) Parse(ctx context.Context, in Input) (content string, err error) {
	// 防御损坏文件导致的panic，统一降级为stub
	defer func() {
		if rec := recover(); rec != nil {
			content, err = p.stub.Parse(ctx, in)
		}
	}()

	content, err = p.inner.Parse(ctx, in)
	if err != nil {
		return p.stub.Parse(ctx, in)
	}
	return content, nil
}
