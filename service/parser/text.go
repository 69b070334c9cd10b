package parser

import (
	"context"
	"strings"
)

// TextParser 纯文本和markdown直接透传
type TextParser struct{}

func (p *TextParser) Name() string {
	return "text"
}

func (p *TextParser) Parse(_ context.Context, in Input) (string, error) {
	content := strings.TrimPrefix(string(in.Raw), "\uFEFF")
	return strings.TrimSpace(content), nil
}
