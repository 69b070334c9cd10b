package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"erp-knowledge-backend/utils"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// 纠错只处理有实际内容的识别结果
const minTextLenForCorrection = 10

const ocrExtractPrompt = `Trích xuất toàn bộ văn bản trong ảnh này, giữ nguyên cấu trúc và định dạng. ` +
	`Chỉ trả về văn bản, không giải thích. Nếu ảnh không chứa văn bản, trả về chuỗi rỗng.`

const ocrCorrectionSystemPrompt = `Bạn là chuyên gia sửa lỗi văn bản OCR tiếng Việt và tiếng Anh.

NHIỆM VỤ: Sửa lỗi nhận dạng ký tự từ OCR, bao gồm:
- Ký tự bị nhận sai (ví dụ: U thành V, l thành I, 0 thành O)
- Ký tự bị dính liền (ví dụ: "textyaml" → "text/yaml")
- Dấu thanh tiếng Việt bị sai hoặc thiếu
- Lỗi chính tả do OCR

QUY TẮC NGHIÊM NGẶT:
1. CHỈ trả về văn bản đã sửa, KHÔNG giải thích
2. Giữ nguyên cấu trúc, định dạng, xuống dòng
3. KHÔNG thêm hoặc bớt nội dung
4. Nếu thấy từ kỹ thuật như "text/yaml/json", "API", "SSE", "JSON" - hãy sửa về đúng format
5. Với tiếng Việt, chú ý dấu thanh: à á ả ã ạ, è é ẻ ẽ ẹ, etc.`

const ocrCorrectionUserPrompt = `Sửa lỗi OCR cho văn bản sau. Chú ý các từ kỹ thuật IT có thể bị nhận sai ký tự.

VĂN BẢN CẦN SỬA:
%s

VĂN BẢN ĐÃ SỬA:`

// OCREngine 从图片字节中识别文本
type OCREngine interface {
	ExtractText(ctx context.Context, image []byte, mimetype string) (string, error)
}

// VisionOCR 基于多模态chat模型的OCR实现
type VisionOCR struct {
	model llms.Model
}

func NewVisionOCR(baseURL, apiKey, model string) (*VisionOCR, error) {
	client, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(utils.DefaultHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ocr model client: %v", err)
	}
	return &VisionOCR{model: client}, nil
}

func (v *VisionOCR) ExtractText(ctx context.Context, image []byte, mimetype string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mimetype, image),
				llms.TextPart(ocrExtractPrompt),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to run ocr: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ocr model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// OCRParser 图片资源OCR识别加可选的LLM纠错。
// 引擎未配置或识别失败时退化为纯图片引用。
type OCRParser struct {
	registry *Registry
	models   ModelFactory
}

func (p *OCRParser) Name() string {
	return "ocr"
}

func (p *OCRParser) Parse(ctx context.Context, in Input) (string, error) {
	imageRef := p.registry.parsers["image"]

	if p.registry.ocr == nil {
		slog.Warn("No OCR engine configured, falling back to image reference",
			"resource_id", in.Resource.ID)
		return imageRef.Parse(ctx, in)
	}

	text, err := p.registry.ocr.ExtractText(ctx, in.Raw, in.Mimetype)
	if err != nil {
		slog.Warn("Failed to run OCR, falling back to image reference",
			"resource_id", in.Resource.ID,
			"err", err)
		return imageRef.Parse(ctx, in)
	}

	sections := []string{
		fmt.Sprintf("# %s\n", in.RecordName),
		fmt.Sprintf("![%s](%s)\n", in.RecordName, in.DownloadURL),
	}
	if text != "" {
		corrected := p.correct(ctx, in, text)
		sections = append(sections, "## Extracted Text (OCR)\n", corrected)
	} else {
		sections = append(sections, "*No text detected in image*")
	}

	return strings.Join(sections, "\n"), nil
}

// correct 用集合配置的chat模型修正OCR识别错误，
// 任何失败都返回原始文本
func (p *OCRParser) correct(ctx context.Context, in Input, text string) string {
	if p.models == nil || utf8.RuneCountInString(text) < minTextLenForCorrection {
		return text
	}

	var correctionModel string
	for _, collection := range in.Resource.Collections {
		if collection.OCRCorrectionModel != "" {
			correctionModel = collection.OCRCorrectionModel
			break
		}
	}
	if correctionModel == "" {
		slog.Debug("No OCR correction model configured in collection, skipping correction",
			"resource_id", in.Resource.ID)
		return text
	}

	model, err := p.models.ForModel(correctionModel)
	if err != nil {
		slog.Warn("Failed to create OCR correction model",
			"resource_id", in.Resource.ID,
			"model", correctionModel,
			"err", err)
		return text
	}

	resp, err := model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ocrCorrectionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(ocrCorrectionUserPrompt, text)),
	})
	if err != nil {
		slog.Warn("Failed to correct OCR text",
			"resource_id", in.Resource.ID,
			"err", err)
		return text
	}
	if len(resp.Choices) == 0 {
		return text
	}

	corrected := strings.TrimSpace(resp.Choices[0].Content)
	if utf8.RuneCountInString(corrected) <= 5 {
		return text
	}

	slog.Info("OCR text corrected",
		"resource_id", in.Resource.ID,
		"model", correctionModel,
		"original_len", len(text),
		"corrected_len", len(corrected))
	return corrected
}
