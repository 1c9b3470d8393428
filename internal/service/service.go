package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hanzibee/internal/assets"
	"hanzibee/internal/loader"
	"hanzibee/internal/model"
	"hanzibee/internal/progress"
)

var (
	ErrCharacterNotFound   = errors.New("未找到对应的汉字")
	ErrCharacterIDRequired = errors.New("请提供汉字编号")
	ErrNameRequired        = errors.New("请提供分类或学习阶段名称")
	ErrQueryRequired       = errors.New("请提供搜索关键词")
	ErrNegativeStars       = errors.New("stars_earned 不能为负数")
	ErrAssetRequired       = errors.New("请提供素材内容")
	ErrUploadUnavailable   = errors.New("未配置素材上传能力")
)

type CompleteLearningRequest struct {
	CharacterID string `json:"character_id"`
	StarsEarned int    `json:"stars_earned"`
}

type CompleteLearningResponse struct {
	Record     model.LearningProgress `json:"record"`
	TotalStars int                    `json:"total_stars"`
	LearnCount int                    `json:"learn_count"`
}

type UpdateProgressRequest struct {
	CharacterID string `json:"character_id"`
	Completed   bool   `json:"completed"`
	StarsEarned int    `json:"stars_earned"`
	LastLearned string `json:"last_learned,omitempty"`
}

type ProgressOverview struct {
	TotalStars   int                              `json:"total_stars"`
	LearnedCount int                              `json:"learned_count"`
	Overall      model.ProgressSummary            `json:"overall"`
	Categories   map[string]model.ProgressSummary `json:"categories"`
}

type UploadAssetRequest struct {
	FileName string
	Bytes    []byte
}

type UploadAssetResponse struct {
	AssetURL string `json:"asset_url"`
}

// Service 把数据加载器与进度存取层拼装给 HTTP 层。
// 所有查询入口先做一次幂等 Initialize，首次请求触发配置拉取。
type Service struct {
	loader   *loader.Loader
	tracker  *progress.Tracker
	uploader *assets.Uploader
}

func New(ld *loader.Loader, tracker *progress.Tracker) *Service {
	return &Service{loader: ld, tracker: tracker}
}

// SetUploader 注入素材上传能力，nil 表示未配置。
func (s *Service) SetUploader(uploader *assets.Uploader) {
	s.uploader = uploader
}

func (s *Service) Loader() *loader.Loader {
	return s.loader
}

func (s *Service) Tracker() *progress.Tracker {
	return s.tracker
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.AvailableCategories(), nil
}

func (s *Service) LearningStages(ctx context.Context) ([]string, error) {
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.AvailableLearningStages(), nil
}

func (s *Service) CharactersByCategory(ctx context.Context, name string) ([]model.HanziCharacter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.LoadByCategory(ctx, name)
}

func (s *Service) CharactersByStage(ctx context.Context, name string) ([]model.HanziCharacter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.LoadByLearningStage(ctx, name)
}

func (s *Service) Character(ctx context.Context, id string) (*model.HanziCharacter, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrCharacterIDRequired
	}
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	hanzi, err := s.loader.LoadCharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hanzi == nil {
		return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	return hanzi, nil
}

func (s *Service) CharacterByText(ctx context.Context, character string) (*model.HanziCharacter, error) {
	if strings.TrimSpace(character) == "" {
		return nil, ErrCharacterIDRequired
	}
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	hanzi, err := s.loader.FindCharacterByText(ctx, character)
	if err != nil {
		return nil, err
	}
	if hanzi == nil {
		return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, character)
	}
	return hanzi, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]model.HanziCharacter, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.SearchCharacters(ctx, query)
}

func (s *Service) Statistics(ctx context.Context) (*model.Statistics, error) {
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.loader.Statistics(), nil
}

// CompleteLearning 完成一次学习挑战：校验汉字存在后走累加语义写入。
func (s *Service) CompleteLearning(ctx context.Context, req CompleteLearningRequest) (CompleteLearningResponse, error) {
	if strings.TrimSpace(req.CharacterID) == "" {
		return CompleteLearningResponse{}, ErrCharacterIDRequired
	}
	if req.StarsEarned < 0 {
		return CompleteLearningResponse{}, ErrNegativeStars
	}
	hanzi, err := s.Character(ctx, req.CharacterID)
	if err != nil {
		return CompleteLearningResponse{}, err
	}

	record, err := s.tracker.CompleteCharacterLearning(req.CharacterID, hanzi.Character, req.StarsEarned)
	if err != nil {
		return CompleteLearningResponse{}, err
	}
	return CompleteLearningResponse{
		Record:     record,
		TotalStars: s.tracker.TotalStars(),
		LearnCount: s.tracker.CharacterLearnCount(req.CharacterID),
	}, nil
}

// UpdateProgress 低层覆盖式写入，与 CompleteLearning 的累加语义并存。
func (s *Service) UpdateProgress(req UpdateProgressRequest) (model.LearningProgress, error) {
	if strings.TrimSpace(req.CharacterID) == "" {
		return model.LearningProgress{}, ErrCharacterIDRequired
	}
	if req.StarsEarned < 0 {
		return model.LearningProgress{}, ErrNegativeStars
	}
	record := model.LearningProgress{
		CharacterID: req.CharacterID,
		Completed:   req.Completed,
		StarsEarned: req.StarsEarned,
	}
	if raw := strings.TrimSpace(req.LastLearned); raw != "" {
		lastLearned, err := parseTimestamp(raw)
		if err != nil {
			return model.LearningProgress{}, fmt.Errorf("last_learned 必须是 RFC3339 格式: %w", err)
		}
		record.LastLearned = lastLearned
	}
	if err := s.tracker.UpdateCharacterProgress(record); err != nil {
		return model.LearningProgress{}, err
	}
	return s.tracker.CharacterProgress(req.CharacterID), nil
}

func (s *Service) CharacterProgress(id string) (model.LearningProgress, error) {
	if strings.TrimSpace(id) == "" {
		return model.LearningProgress{}, ErrCharacterIDRequired
	}
	return s.tracker.CharacterProgress(id), nil
}

// Overview 汇总全部分类的完成度与总星数。字表经数据加载器
// 逐分类取得，享受缓存。
func (s *Service) Overview(ctx context.Context) (ProgressOverview, error) {
	characters, err := s.allCharacters(ctx)
	if err != nil {
		return ProgressOverview{}, err
	}
	return ProgressOverview{
		TotalStars:   s.tracker.TotalStars(),
		LearnedCount: len(s.tracker.LearnedCharacters()),
		Overall:      s.tracker.OverallProgress(characters),
		Categories:   s.tracker.CategoryProgressSummary(characters),
	}, nil
}

// CategoryProgress 单个分类的已学交集统计。
func (s *Service) CategoryProgress(ctx context.Context, name string) (model.CategoryProgress, error) {
	characters, err := s.CharactersByCategory(ctx, name)
	if err != nil {
		return model.CategoryProgress{}, err
	}
	return s.tracker.CalculateCategoryProgress(name, characters), nil
}

// AllCategoryProgress 走进度层的独立分片拉取，单个分类失败不影响其余。
func (s *Service) AllCategoryProgress(ctx context.Context) ([]model.CategoryProgress, error) {
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.tracker.CalculateAllCategoryProgress(ctx, s.loader.MasterConfig()), nil
}

func (s *Service) TotalStars() int {
	return s.tracker.TotalStars()
}

func (s *Service) UploadAsset(ctx context.Context, req UploadAssetRequest) (UploadAssetResponse, error) {
	if len(req.Bytes) == 0 {
		return UploadAssetResponse{}, ErrAssetRequired
	}
	if s.uploader == nil {
		return UploadAssetResponse{}, ErrUploadUnavailable
	}
	assetURL, err := s.uploader.Upload(ctx, req.Bytes, req.FileName)
	if err != nil {
		return UploadAssetResponse{}, err
	}
	return UploadAssetResponse{AssetURL: strings.TrimSpace(assetURL)}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

func (s *Service) allCharacters(ctx context.Context) ([]model.HanziCharacter, error) {
	if err := s.loader.Initialize(ctx); err != nil {
		return nil, err
	}
	characters := make([]model.HanziCharacter, 0)
	for _, name := range s.loader.AvailableCategories() {
		shard, err := s.loader.LoadByCategory(ctx, name)
		if err != nil {
			return nil, err
		}
		characters = append(characters, shard...)
	}
	return characters, nil
}
