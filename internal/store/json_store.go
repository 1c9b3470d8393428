package store

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"

	"hanzibee/internal/model"
)

type fileState struct {
	TotalStars int                               `json:"totalStars"`
	Learned    []model.LearnedCharacter          `json:"learnedCharacters"`
	Progress   map[string]model.LearningProgress `json:"progress"`
}

type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		filePath: filePath,
		state: fileState{
			Learned:  make([]model.LearnedCharacter, 0),
			Progress: make(map[string]model.LearningProgress),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) GetTotalStars() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.TotalStars, nil
}

func (s *JSONStore) SetTotalStars(stars int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TotalStars = stars
	return s.persistLocked()
}

func (s *JSONStore) ListLearned() ([]model.LearnedCharacter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]model.LearnedCharacter, len(s.state.Learned))
	copy(list, s.state.Learned)
	return list, nil
}

func (s *JSONStore) SaveLearned(list []model.LearnedCharacter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Learned = make([]model.LearnedCharacter, len(list))
	copy(s.state.Learned, list)
	return s.persistLocked()
}

func (s *JSONStore) GetProgress(characterID string) (model.LearningProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.state.Progress[characterID]
	return record, ok, nil
}

func (s *JSONStore) ListProgress() (map[string]model.LearningProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]model.LearningProgress, len(s.state.Progress))
	for id, record := range s.state.Progress {
		result[id] = record
	}
	return result, nil
}

func (s *JSONStore) SaveProgress(record model.LearningProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress[record.CharacterID] = record
	return s.persistLocked()
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		// 进度文件损坏时降级为空状态继续运行，用户从零进度重新开始。
		log.Printf("progress file corrupted, starting empty: path=%s err=%v", s.filePath, err)
		return nil
	}
	if state.Learned == nil {
		state.Learned = make([]model.LearnedCharacter, 0)
	}
	if state.Progress == nil {
		state.Progress = make(map[string]model.LearningProgress)
	}
	s.state = state
	return nil
}

func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
