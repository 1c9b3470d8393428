package store

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/quasilyte/gdata/v2"

	"hanzibee/internal/model"
)

// gdata 把数据落在各平台约定的应用数据目录，键位布局与前端
// localStorage 保持一致：星星计数器是纯整数字符串，其余两键是 JSON。
const (
	gdataObject      = "progress"
	propTotalStars   = "total_stars"
	propLearnedChars = "learned_characters"
	propProgressMap  = "records"
)

type GDataStore struct {
	manager *gdata.Manager
}

func NewGDataStore(appName string) (*GDataStore, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = "hanzibee"
	}
	manager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, err
	}
	return &GDataStore{manager: manager}, nil
}

func (s *GDataStore) GetTotalStars() (int, error) {
	if !s.manager.ObjectPropExists(gdataObject, propTotalStars) {
		return 0, nil
	}
	raw, err := s.manager.LoadObjectProp(gdataObject, propTotalStars)
	if err != nil {
		return 0, err
	}
	stars, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, err
	}
	return stars, nil
}

func (s *GDataStore) SetTotalStars(stars int) error {
	return s.manager.SaveObjectProp(gdataObject, propTotalStars, []byte(strconv.Itoa(stars)))
}

func (s *GDataStore) ListLearned() ([]model.LearnedCharacter, error) {
	if !s.manager.ObjectPropExists(gdataObject, propLearnedChars) {
		return []model.LearnedCharacter{}, nil
	}
	raw, err := s.manager.LoadObjectProp(gdataObject, propLearnedChars)
	if err != nil {
		return nil, err
	}
	var list []model.LearnedCharacter
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = make([]model.LearnedCharacter, 0)
	}
	return list, nil
}

func (s *GDataStore) SaveLearned(list []model.LearnedCharacter) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.manager.SaveObjectProp(gdataObject, propLearnedChars, data)
}

func (s *GDataStore) GetProgress(characterID string) (model.LearningProgress, bool, error) {
	records, err := s.ListProgress()
	if err != nil {
		return model.LearningProgress{}, false, err
	}
	record, ok := records[characterID]
	return record, ok, nil
}

func (s *GDataStore) ListProgress() (map[string]model.LearningProgress, error) {
	if !s.manager.ObjectPropExists(gdataObject, propProgressMap) {
		return map[string]model.LearningProgress{}, nil
	}
	raw, err := s.manager.LoadObjectProp(gdataObject, propProgressMap)
	if err != nil {
		return nil, err
	}
	var records map[string]model.LearningProgress
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = make(map[string]model.LearningProgress)
	}
	return records, nil
}

func (s *GDataStore) SaveProgress(record model.LearningProgress) error {
	records, err := s.ListProgress()
	if err != nil {
		// 进度表读不出来时以单条记录重建，避免写路径被损坏数据卡死。
		records = make(map[string]model.LearningProgress)
	}
	records[record.CharacterID] = record
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.manager.SaveObjectProp(gdataObject, propProgressMap, data)
}
