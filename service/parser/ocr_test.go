package parser

import (
	"context"
	"errors"
	"testing"

	"erp-knowledge-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeOCREngine struct {
	text string
	err  error
}

func (f *fakeOCREngine) ExtractText(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakeChatModel struct {
	reply string
	err   error
}

func (f *fakeChatModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeChatModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.reply, f.err
}

type fakeModelFactory struct {
	model llms.Model
}

func (f *fakeModelFactory) ForModel(string) (llms.Model, error) {
	return f.model, nil
}

func TestOCRParserExtractsText(t *testing.T) {
	registry := NewRegistry(WithOCREngine(&fakeOCREngine{text: "Hóa đơn số 42"}))
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	out, err := p.Parse(context.Background(), testInput("invoice.png", "image/png", []byte{1}))
	require.NoError(t, err)
	assert.Contains(t, out, "# invoice.png")
	assert.Contains(t, out, "![invoice.png](/api/attachments/1/download)")
	assert.Contains(t, out, "## Extracted Text (OCR)")
	assert.Contains(t, out, "Hóa đơn số 42")
}

func TestOCRParserNoTextDetected(t *testing.T) {
	registry := NewRegistry(WithOCREngine(&fakeOCREngine{text: ""}))
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	out, err := p.Parse(context.Background(), testInput("blank.png", "image/png", []byte{1}))
	require.NoError(t, err)
	assert.Contains(t, out, "*No text detected in image*")
}

func TestOCRParserEngineFailureFallsBackToReference(t *testing.T) {
	registry := NewRegistry(WithOCREngine(&fakeOCREngine{err: errors.New("model down")}))
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	out, err := p.Parse(context.Background(), testInput("photo.png", "image/png", []byte{1}))
	require.NoError(t, err)
	assert.Equal(t, "![photo.png](/api/attachments/1/download)", out)
}

func TestOCRCorrectionUsesCollectionModel(t *testing.T) {
	registry := NewRegistry(
		WithOCREngine(&fakeOCREngine{text: "van ban nhan dang sai chinh ta"}),
		WithOCRCorrection(&fakeModelFactory{model: &fakeChatModel{reply: "văn bản nhận dạng sai chính tả"}}),
	)
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	in := testInput("scan.png", "image/png", []byte{1})
	in.Resource.Collections = []model.Collection{{OCRCorrectionModel: "gpt-4o-mini"}}

	out, err := p.Parse(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, out, "văn bản nhận dạng sai chính tả")
}

func TestOCRCorrectionSkipsShortText(t *testing.T) {
	registry := NewRegistry(
		WithOCREngine(&fakeOCREngine{text: "abc"}),
		WithOCRCorrection(&fakeModelFactory{model: &fakeChatModel{reply: "should not be used"}}),
	)
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	in := testInput("scan.png", "image/png", []byte{1})
	in.Resource.Collections = []model.Collection{{OCRCorrectionModel: "gpt-4o-mini"}}

	out, err := p.Parse(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, out, "abc")
	assert.NotContains(t, out, "should not be used")
}

func TestOCRCorrectionRejectsDegenerateReply(t *testing.T) {
	registry := NewRegistry(
		WithOCREngine(&fakeOCREngine{text: "van ban nhan dang day du noi dung"}),
		WithOCRCorrection(&fakeModelFactory{model: &fakeChatModel{reply: "ok"}}),
	)
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	in := testInput("scan.png", "image/png", []byte{1})
	in.Resource.Collections = []model.Collection{{OCRCorrectionModel: "gpt-4o-mini"}}

	out, err := p.Parse(context.Background(), in)
	require.NoError(t, err)
	// 纠错结果过短视为模型答非所问，保留原始识别文本
	assert.Contains(t, out, "van ban nhan dang day du noi dung")
}

func TestOCRCorrectionFailureKeepsRawText(t *testing.T) {
	registry := NewRegistry(
		WithOCREngine(&fakeOCREngine{text: "van ban nhan dang day du noi dung"}),
		WithOCRCorrection(&fakeModelFactory{model: &fakeChatModel{err: errors.New("timeout")}}),
	)
	p, err := registry.Get("ocr")
	require.NoError(t, err)

	in := testInput("scan.png", "image/png", []byte{1})
	in.Resource.Collections = []model.Collection{{OCRCorrectionModel: "gpt-4o-mini"}}

	out, err := p.Parse(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, out, "van ban nhan dang day du noi dung")
}
