package access

import "erp-knowledge-backend/model"

// Checker 判断用户是否可读某个资源，检索结果按此静默过滤
type Checker interface {
	CanRead(userEmail string, resource *model.Resource) bool
}

// OwnerOrPublic 默认规则：公开资源人人可读，私有资源仅属主可读
type OwnerOrPublic struct{}

var _ Checker = OwnerOrPublic{}

func (OwnerOrPublic) CanRead(userEmail string, resource *model.Resource) bool {
	if resource == nil {
		return false
	}
	if resource.Public {
		return true
	}
	return resource.OwnerEmail != "" && resource.OwnerEmail == userEmail
}
