package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hanzibee/internal/model"
)

var (
	ErrNotInitialized        = errors.New("字库尚未初始化，请先调用 Initialize")
	ErrConfigLoad            = errors.New("字库配置加载失败")
	ErrCategoryNotFound      = errors.New("未找到对应的汉字分类")
	ErrLearningStageNotFound = errors.New("未找到对应的学习阶段")
	ErrShardLoad             = errors.New("字库分片加载失败")
	ErrDuplicateCharacterID  = errors.New("字库分片存在重复的汉字编号")
)

const (
	masterConfigFile = "master-config.json"
	indexConfigFile  = "index.json"
)

// Loader 按需加载分片字库并维护内存缓存。
// 三个缓存（分类、阶段、单字）由同一把读写锁保护；
// 同名分片的并发加载通过 singleflight 合并为一次网络请求。
type Loader struct {
	baseURL string
	client  *http.Client

	mu             sync.RWMutex
	masterConfig   *model.MasterConfig
	indexConfig    *model.IndexConfig
	categoryCache  map[string][]model.HanziCharacter
	stageCache     map[string][]model.HanziCharacter
	characterCache map[string]model.HanziCharacter

	flight singleflight.Group
}

// New 创建数据加载器。baseURL 指向字库配置目录，例如
// https://cdn.example.com/data/configs；client 为 nil 时使用默认超时客户端。
func New(baseURL string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Loader{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:         client,
		categoryCache:  make(map[string][]model.HanziCharacter),
		stageCache:     make(map[string][]model.HanziCharacter),
		characterCache: make(map[string]model.HanziCharacter),
	}
}

// Initialize 依次拉取 master-config.json 与 index.json。幂等：
// 配置已就位时直接返回，重复调用不会产生新的网络请求。
func (l *Loader) Initialize(ctx context.Context) error {
	if l.initialized() {
		return nil
	}
	_, err, _ := l.flight.Do("initialize", func() (any, error) {
		if l.initialized() {
			return nil, nil
		}
		var master model.MasterConfig
		if err := l.fetchJSON(ctx, masterConfigFile, &master); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
		}
		var index model.IndexConfig
		if err := l.fetchJSON(ctx, indexConfigFile, &index); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
		}

		l.mu.Lock()
		l.masterConfig = &master
		l.indexConfig = &index
		l.mu.Unlock()
		return nil, nil
	})
	return err
}

func (l *Loader) initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.masterConfig != nil
}

// AvailableCategories 返回全部分类名。未初始化时返回空切片而非报错。
func (l *Loader) AvailableCategories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.masterConfig == nil {
		return []string{}
	}
	names := make([]string, 0, len(l.masterConfig.Categories))
	for _, entry := range l.masterConfig.Categories {
		names = append(names, entry.Name)
	}
	return names
}

// AvailableLearningStages 返回全部学习阶段名。未初始化时返回空切片。
func (l *Loader) AvailableLearningStages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.masterConfig == nil {
		return []string{}
	}
	names := make([]string, 0, len(l.masterConfig.LearningStages))
	for _, entry := range l.masterConfig.LearningStages {
		names = append(names, entry.Name)
	}
	return names
}

// LoadByCategory 加载某个分类的全部汉字，缓存优先。
// 分类名大小写敏感，未登记的分类返回 ErrCategoryNotFound。
// 成功加载后同时回填单字缓存。
func (l *Loader) LoadByCategory(ctx context.Context, name string) ([]model.HanziCharacter, error) {
	return l.loadShard(ctx, shardKindCategory, name)
}

// LoadByLearningStage 与 LoadByCategory 契约一致，作用于学习阶段分片。
func (l *Loader) LoadByLearningStage(ctx context.Context, name string) ([]model.HanziCharacter, error) {
	return l.loadShard(ctx, shardKindStage, name)
}

type shardKind int

const (
	shardKindCategory shardKind = iota
	shardKindStage
)

func (l *Loader) loadShard(ctx context.Context, kind shardKind, name string) ([]model.HanziCharacter, error) {
	master, err := l.requireMaster()
	if err != nil {
		return nil, err
	}
	if cached, ok := l.cachedShard(kind, name); ok {
		return cached, nil
	}

	entries := master.Categories
	notFound := ErrCategoryNotFound
	flightPrefix := "category:"
	if kind == shardKindStage {
		entries = master.LearningStages
		notFound = ErrLearningStageNotFound
		flightPrefix = "stage:"
	}

	var file string
	for _, entry := range entries {
		if entry.Name == name {
			file = entry.File
			break
		}
	}
	if file == "" {
		return nil, fmt.Errorf("%w: %s", notFound, name)
	}

	v, err, _ := l.flight.Do(flightPrefix+name, func() (any, error) {
		if cached, ok := l.cachedShard(kind, name); ok {
			return cached, nil
		}
		var shard []model.HanziCharacter
		if err := l.fetchJSON(ctx, file, &shard); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrShardLoad, name, err)
		}
		if shard == nil {
			// 分片内容为 JSON null 时按空数组处理，不视为错误。
			shard = []model.HanziCharacter{}
		}
		if err := validateShardIDs(file, shard); err != nil {
			return nil, err
		}
		l.storeShard(kind, name, shard)
		return shard, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.HanziCharacter), nil
}

// LoadCharacterByID 按编号查找单个汉字，缓存优先。缓存未命中时
// 取编号首个下划线之前的字形，经 characterIndex 定位所属分类后
// 加载该分类分片再精确匹配。查无此字返回 (nil, nil)，不报错。
func (l *Loader) LoadCharacterByID(ctx context.Context, id string) (*model.HanziCharacter, error) {
	if hanzi, ok := l.cachedCharacter(id); ok {
		return &hanzi, nil
	}
	index, err := l.requireIndex()
	if err != nil {
		return nil, err
	}

	glyph := id
	if sep := strings.Index(id, "_"); sep >= 0 {
		glyph = id[:sep]
	}
	entry, ok := index.CharacterIndex[glyph]
	if !ok {
		return nil, nil
	}

	shard, err := l.LoadByCategory(ctx, entry.Category)
	if err != nil {
		return nil, err
	}
	for _, hanzi := range shard {
		if hanzi.ID == id {
			return &hanzi, nil
		}
	}
	return nil, nil
}

// FindCharacterByText 按字形查找：characterIndex 给出规范编号后转交
// LoadCharacterByID。未收录的字形返回 (nil, nil)。
func (l *Loader) FindCharacterByText(ctx context.Context, character string) (*model.HanziCharacter, error) {
	index, err := l.requireIndex()
	if err != nil {
		return nil, err
	}
	entry, ok := index.CharacterIndex[character]
	if !ok {
		return nil, nil
	}
	return l.LoadCharacterByID(ctx, entry.ID)
}

// SearchCharacters 线性扫描全部分类（借助缓存），匹配规则：
// 字形包含 query（大小写敏感），或拼音、释义包含 query（忽略大小写）。
// 结果按 masterConfig 的分类顺序排列。
func (l *Loader) SearchCharacters(ctx context.Context, query string) ([]model.HanziCharacter, error) {
	master, err := l.requireMaster()
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(query)

	results := make([]model.HanziCharacter, 0)
	for _, entry := range master.Categories {
		shard, err := l.LoadByCategory(ctx, entry.Name)
		if err != nil {
			return nil, err
		}
		for _, hanzi := range shard {
			if strings.Contains(hanzi.Character, query) ||
				strings.Contains(strings.ToLower(hanzi.Pinyin), lowered) ||
				strings.Contains(strings.ToLower(hanzi.Meaning), lowered) {
				results = append(results, hanzi)
			}
		}
	}
	return results, nil
}

// Statistics 对 masterConfig 的纯投影，未初始化时返回 nil。
func (l *Loader) Statistics() *model.Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.masterConfig == nil {
		return nil
	}
	stats := &model.Statistics{
		TotalCharacters:     l.masterConfig.TotalCharacters,
		CategoriesCount:     len(l.masterConfig.Categories),
		LearningStagesCount: len(l.masterConfig.LearningStages),
		Categories:          make([]model.CountEntry, 0, len(l.masterConfig.Categories)),
		LearningStages:      make([]model.CountEntry, 0, len(l.masterConfig.LearningStages)),
	}
	for _, entry := range l.masterConfig.Categories {
		stats.Categories = append(stats.Categories, model.CountEntry{Name: entry.Name, Count: entry.Count})
	}
	for _, entry := range l.masterConfig.LearningStages {
		stats.LearningStages = append(stats.LearningStages, model.CountEntry{Name: entry.Name, Count: entry.Count})
	}
	return stats
}

// MasterConfig 返回已加载的主配置，未初始化时为 nil。
func (l *Loader) MasterConfig() *model.MasterConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.masterConfig
}

// ClearCache 清空三个分片缓存。主配置与索引保持不变，
// 如需刷新配置必须重新 Initialize。
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.categoryCache = make(map[string][]model.HanziCharacter)
	l.stageCache = make(map[string][]model.HanziCharacter)
	l.characterCache = make(map[string]model.HanziCharacter)
}

func (l *Loader) requireMaster() (*model.MasterConfig, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.masterConfig == nil {
		return nil, ErrNotInitialized
	}
	return l.masterConfig, nil
}

func (l *Loader) requireIndex() (*model.IndexConfig, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.indexConfig == nil {
		return nil, ErrNotInitialized
	}
	return l.indexConfig, nil
}

func (l *Loader) cachedShard(kind shardKind, name string) ([]model.HanziCharacter, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cache := l.categoryCache
	if kind == shardKindStage {
		cache = l.stageCache
	}
	shard, ok := cache[name]
	return shard, ok
}

func (l *Loader) storeShard(kind shardKind, name string, shard []model.HanziCharacter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if kind == shardKindStage {
		l.stageCache[name] = shard
	} else {
		l.categoryCache[name] = shard
	}
	for _, hanzi := range shard {
		l.characterCache[hanzi.ID] = hanzi
	}
}

func (l *Loader) cachedCharacter(id string) (model.HanziCharacter, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	hanzi, ok := l.characterCache[id]
	return hanzi, ok
}

// validateShardIDs 在加载时校验分片内编号唯一，重复编号立即报错。
func validateShardIDs(file string, shard []model.HanziCharacter) error {
	seen := make(map[string]struct{}, len(shard))
	for _, hanzi := range shard {
		if _, dup := seen[hanzi.ID]; dup {
			return fmt.Errorf("%w: %s 中的 %s", ErrDuplicateCharacterID, file, hanzi.ID)
		}
		seen[hanzi.ID] = struct{}{}
	}
	return nil
}

func (l *Loader) fetchJSON(ctx context.Context, file string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+file, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: %s", file, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
