package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"erp-knowledge-backend/model"

	"github.com/tmc/langchaingo/textsplitter"
)

var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// 匹配只有孤立标题的chunk，形如 "# xxx ## xxx"
var headerOnlyRegex = regexp.MustCompile(`^\s*(?:#{1,6}\s+.+\n?)+\s*$`)

// Split 按资源配置的算法把markdown内容切成有界的重叠分块
func Split(kind model.ChunkerKind, content string, chunkSize, chunkOverlap int) ([]string, error) {
	splitter, err := newSplitter(kind, chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}

	parts, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split content: %v", err)
	}

	return filterStandaloneHeaders(parts), nil
}

func newSplitter(kind model.ChunkerKind, chunkSize, chunkOverlap int) (textsplitter.TextSplitter, error) {
	recursive := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(separators),
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	switch kind {
	case model.ChunkerRecursive, "":
		return recursive, nil
	case model.ChunkerMarkdown:
		return textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithHeadingHierarchy(true), // 保留父级标题信息
			textsplitter.WithSecondSplitter(recursive),
		), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", kind)
	}
}

// filterStandaloneHeaders 过滤空分块和只有孤立标题的分块
func filterStandaloneHeaders(parts []string) []string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		content := strings.TrimSpace(part)
		if content == "" {
			continue
		}
		if headerOnlyRegex.MatchString(content) {
			continue
		}
		filtered = append(filtered, part)
	}
	return filtered
}
