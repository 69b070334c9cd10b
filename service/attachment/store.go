package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"erp-knowledge-backend/config"
	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

// Store 附件对象存储，元数据入库，内容存OSS
type Store struct {
	client *oss.Client
	bucket string
}

func NewStore() *Store {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	return &Store{
		client: oss.NewClient(cfg),
		bucket: config.Cfg.OSS.BucketName,
	}
}

// GetObject 下载附件内容
func (s *Store) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from oss: %v", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %v", err)
	}
	return data, nil
}

// PutObject 上传附件内容
func (s *Store) PutObject(ctx context.Context, objectName, mimetype string, data []byte) error {
	_, err := s.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(s.bucket),
		Key:         oss.Ptr(objectName),
		ContentType: oss.Ptr(mimetype),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object to oss: %v", err)
	}
	return nil
}

// PresignURL 生成限时下载链接
func (s *Store) PresignURL(ctx context.Context, objectName string) (string, error) {
	result, err := s.client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object url: %v", err)
	}
	return result.URL, nil
}

// SaveImage 落盘解析阶段抽取的图片：内容进OSS，元数据入库，
// 返回稳定的应用内下载链接供markdown引用
func (s *Store) SaveImage(ctx context.Context, resourceID uint, name, mimetype string, data []byte) (string, error) {
	// 对象名加随机前缀，重复解析不会覆盖历史图片
	objectName := fmt.Sprintf("resources/%d/%s_%s", resourceID, uuid.NewString(), name)
	if err := s.PutObject(ctx, objectName, mimetype, data); err != nil {
		return "", err
	}

	att := &model.Attachment{
		FileName:   name,
		Mimetype:   mimetype,
		ObjectName: objectName,
	}
	if err := dao.CreateAttachment(att); err != nil {
		return "", fmt.Errorf("failed to create attachment record: %v", err)
	}
	att.URL = DownloadPath(att.ID)
	if err := dao.UpdateAttachment(att); err != nil {
		return "", fmt.Errorf("failed to update attachment url: %v", err)
	}
	return att.URL, nil
}

// DownloadPath 附件的应用内下载路径，不随presign过期
func DownloadPath(attachmentID uint) string {
	return fmt.Sprintf("/api/attachments/%d/download", attachmentID)
}
