package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/attachment"
	"erp-knowledge-backend/utils"
)

// ErrRecordNotFound 来源记录已不存在，调用方应记录失败日志
var ErrRecordNotFound = errors.New("referenced record not found")

// Field 来源记录上一个待索引的字段
type Field struct {
	Name        string
	Mimetype    string
	Raw         []byte
	RecordName  string
	DownloadURL string
}

// Provider 按来源模型取回待索引字段的原始内容。
// Check是retrieve阶段的轻量存在性校验，不拉取内容。
type Provider interface {
	Check(ctx context.Context, resource *model.Resource) error
	Fields(ctx context.Context, resource *model.Resource) ([]Field, error)
}

// Registry 来源提供方注册表：
// 外链资源走HTTP抓取，附件走OSS，其余业务表走通用列提取
type Registry struct {
	attachments *AttachmentProvider
	external    *ExternalURLProvider
	generic     *GenericProvider
}

func NewRegistry(store *attachment.Store) *Registry {
	return &Registry{
		attachments: &AttachmentProvider{store: store},
		external:    &ExternalURLProvider{},
		generic:     &GenericProvider{},
	}
}

// Resolve 为资源选择内容提供方
func (r *Registry) Resolve(resource *model.Resource) Provider {
	if resource.ExternalURL != "" {
		return r.external
	}
	if resource.SourceModel == model.SourceModelAttachment {
		return r.attachments
	}
	return r.generic
}

// AttachmentProvider 附件内容从OSS取回，mimetype沿用上传时的探测结果
type AttachmentProvider struct {
	store *attachment.Store
}

func (p *AttachmentProvider) Check(_ context.Context, resource *model.Resource) error {
	att, err := dao.GetAttachmentByID(resource.SourceID)
	if err != nil {
		return fmt.Errorf("failed to load attachment: %v", err)
	}
	if att == nil {
		return ErrRecordNotFound
	}
	return nil
}

func (p *AttachmentProvider) Fields(ctx context.Context, resource *model.Resource) ([]Field, error) {
	att, err := dao.GetAttachmentByID(resource.SourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachment: %v", err)
	}
	if att == nil {
		return nil, ErrRecordNotFound
	}

	if p.store == nil {
		return nil, errors.New("attachment store not configured")
	}
	raw, err := p.store.GetObject(ctx, att.ObjectName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment content: %v", err)
	}

	return []Field{{
		Name:        "raw",
		Mimetype:    att.Mimetype,
		Raw:         raw,
		RecordName:  att.FileName,
		DownloadURL: attachment.DownloadPath(att.ID),
	}}, nil
}

// ExternalURLProvider 抓取外部链接内容，mimetype取响应头
type ExternalURLProvider struct{}

// Check 不预检外链，可达性问题留给parse阶段暴露
func (p *ExternalURLProvider) Check(context.Context, *model.Resource) error {
	return nil
}

func (p *ExternalURLProvider) Fields(ctx context.Context, resource *model.Resource) ([]Field, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource.ExternalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}

	resp, err := utils.DefaultHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch external url: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch external url: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	mimetype := "text/html"
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mimetype = parsed
		}
	}

	return []Field{{
		Name:        "content",
		Mimetype:    mimetype,
		Raw:         raw,
		RecordName:  resource.Name,
		DownloadURL: resource.ExternalURL,
	}}, nil
}

// 通用提取只看这些常见文本列
var genericTextColumns = []string{
	"name", "display_name", "title", "description",
	"note", "comment", "message", "content", "body", "text",
}

var tableNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// GenericProvider 对任意业务表做通用列提取，
// 序列化为JSON交给json解析器渲染
type GenericProvider struct{}

func (p *GenericProvider) Check(_ context.Context, resource *model.Resource) error {
	if !tableNameRegex.MatchString(resource.SourceModel) {
		return fmt.Errorf("invalid source model: %s", resource.SourceModel)
	}

	var count int64
	err := dao.DB.Table(resource.SourceModel).
		Where("id = ?", resource.SourceID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check source record: %v", err)
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GenericProvider) Fields(_ context.Context, resource *model.Resource) ([]Field, error) {
	if !tableNameRegex.MatchString(resource.SourceModel) {
		return nil, fmt.Errorf("invalid source model: %s", resource.SourceModel)
	}

	row := map[string]any{}
	err := dao.DB.Table(resource.SourceModel).
		Where("id = ?", resource.SourceID).
		Take(&row).Error
	if err != nil {
		return nil, ErrRecordNotFound
	}

	recordName := fmt.Sprintf("%s #%d", resource.SourceModel, resource.SourceID)
	if name, ok := row["name"].(string); ok && name != "" {
		recordName = name
	}

	fields := map[string]any{}
	for _, column := range genericTextColumns {
		value, ok := row[column]
		if !ok || value == nil {
			continue
		}
		// MySQL驱动把文本列也返回为[]byte，真二进制内容跳过
		switch v := value.(type) {
		case []byte:
			if isPrintable(v) {
				fields[column] = string(v)
			}
		default:
			fields[column] = value
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no indexable fields on %s #%d", resource.SourceModel, resource.SourceID)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record fields: %v", err)
	}

	return []Field{{
		Name:       "record",
		Mimetype:   "application/json",
		Raw:        raw,
		RecordName: recordName,
	}}, nil
}

func isPrintable(data []byte) bool {
	return !strings.ContainsRune(string(data), 0)
}
