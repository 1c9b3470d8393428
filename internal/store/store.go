package store

import "hanzibee/internal/model"

// Store 学习进度的持久化引擎，对应三类存储键：
// 星星总数计数器、旧版学习记录列表、按编号索引的进度表。
type Store interface {
	GetTotalStars() (int, error)
	SetTotalStars(stars int) error

	ListLearned() ([]model.LearnedCharacter, error)
	SaveLearned(list []model.LearnedCharacter) error

	GetProgress(characterID string) (model.LearningProgress, bool, error)
	ListProgress() (map[string]model.LearningProgress, error)
	SaveProgress(record model.LearningProgress) error
}
