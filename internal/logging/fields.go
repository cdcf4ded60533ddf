package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供仓库/鉴权模式/命中状态字段，供 HTTP 浏览接口的请求日志复用。
func RequestFields(repository, repositoryID, authMode string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"repository":    repository,
		"repository_id": repositoryID,
		"auth_mode":     authMode,
		"cache_hit":     cacheHit,
	}
}

// SessionFields 描述一次缓存编排动作涉及的仓库、关系与对象。
func SessionFields(repositoryID, relation, objectID string) logrus.Fields {
	return logrus.Fields{
		"action":        "cmis_" + relation,
		"repository_id": repositoryID,
		"relation":      relation,
		"object_id":     objectID,
	}
}
