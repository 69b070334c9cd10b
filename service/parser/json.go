package parser

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONParser 把记录字段序列化为markdown包裹的JSON文档
type JSONParser struct{}

func (p *JSONParser) Name() string {
	return "json"
}

func (p *JSONParser) Parse(_ context.Context, in Input) (string, error) {
	var value any
	if err := json.Unmarshal(in.Raw, &value); err != nil {
		return "", fmt.Errorf("failed to decode record data: %v", err)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize record data: %v", err)
	}

	return fmt.Sprintf("# %s\n\n## JSON Data\n\n```json\n%s\n```",
		in.RecordName, string(pretty)), nil
}
