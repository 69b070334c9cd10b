package parser

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// HTMLParser HTML转markdown，保留标题层级和链接
type HTMLParser struct{}

func (p *HTMLParser) Name() string {
	return "html"
}

func (p *HTMLParser) Parse(_ context.Context, in Input) (string, error) {
	converter := md.NewConverter("", true, nil)
	content, err := converter.ConvertString(string(in.Raw))
	if err != nil {
		return "", fmt.Errorf("failed to convert html: %v", err)
	}
	return content, nil
}
