package service

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// ParseAchievementCatalog 업적 카탈로그 시드 YAML 파싱
func ParseAchievementCatalog(content string) ([]model.Achievement, error) {
	var file struct {
		Achievements []model.Achievement `yaml:"achievements"`
	}
	if err := yaml.Unmarshal([]byte(content), &file); err != nil {
		return nil, fmt.Errorf("unmarshal achievement catalog failed: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Achievements))
	for i, a := range file.Achievements {
		if a.Type == "" || a.Name == "" || a.Requirement <= 0 {
			return nil, fmt.Errorf("achievement %d: type, name and positive requirement are required", i)
		}
		if _, dup := seen[a.Key()]; dup {
			return nil, fmt.Errorf("achievement %d: duplicate %s", i, a.Key())
		}
		seen[a.Key()] = struct{}{}
	}
	return file.Achievements, nil
}
