package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"hanzibee/internal/model"
	"hanzibee/internal/store"
)

var (
	ErrCharacterIDRequired = errors.New("请提供汉字编号")
	ErrNegativeStars       = errors.New("stars_earned 不能为负数")
)

// Event 在进度写入成功后广播给订阅者。
type Event struct {
	CharacterID string
	Record      model.LearningProgress
	TotalStars  int
}

// Tracker 进度存取层。读路径全部防御性降级：存储读失败或数据损坏
// 只记日志并退回零值，绝不让学习界面崩溃；写路径的错误如实上抛。
// 写路径在进程内由互斥锁串行化，并发完成同一个字时星星累加不丢；
// 跨进程仍是存储层的最后写入生效。
// 分类进度的独立拉取走自己的 HTTP 客户端，刻意不复用数据加载器的缓存。
type Tracker struct {
	store   store.Store
	baseURL string
	client  *http.Client

	now func() time.Time

	writeMu sync.Mutex

	mu          sync.Mutex
	subscribers []func(Event)
}

// New 创建进度追踪器。baseURL 与数据加载器指向同一字库目录，
// 仅用于 CalculateAllCategoryProgress 的独立分片拉取。
func New(st store.Store, baseURL string, client *http.Client) *Tracker {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Tracker{
		store:   st,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
		now:     time.Now,
	}
}

// Subscribe 注册进度变更回调，代替浏览器里手动派发 storage 事件的做法。
// 回调在写入成功后同步执行。
func (t *Tracker) Subscribe(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

func (t *Tracker) notify(event Event) {
	t.mu.Lock()
	subscribers := make([]func(Event), len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.Unlock()
	for _, fn := range subscribers {
		fn(event)
	}
}

// TotalStars 返回累计星星数，任何读失败都降级为 0。
func (t *Tracker) TotalStars() int {
	stars, err := t.store.GetTotalStars()
	if err != nil {
		log.Printf("progress read total stars failed: %v", err)
		return 0
	}
	return stars
}

// LearnedCharacters 返回旧版学习记录列表，任何读失败都降级为空列表。
func (t *Tracker) LearnedCharacters() []model.LearnedCharacter {
	list, err := t.store.ListLearned()
	if err != nil {
		log.Printf("progress read learned list failed: %v", err)
		return []model.LearnedCharacter{}
	}
	return list
}

func (t *Tracker) IsCharacterLearned(characterID string) bool {
	if characterID == "" {
		return false
	}
	for _, learned := range t.LearnedCharacters() {
		if learned.ID == characterID {
			return true
		}
	}
	return false
}

func (t *Tracker) CharacterLearnCount(characterID string) int {
	if characterID == "" {
		return 0
	}
	for _, learned := range t.LearnedCharacters() {
		if learned.ID == characterID {
			return learned.Count
		}
	}
	return 0
}

// CharacterProgress 返回单字进度。未持久化过的编号返回隐式零值记录。
func (t *Tracker) CharacterProgress(characterID string) model.LearningProgress {
	record, ok, err := t.store.GetProgress(characterID)
	if err != nil {
		log.Printf("progress read record failed: character_id=%s err=%v", characterID, err)
		ok = false
	}
	if !ok {
		return model.LearningProgress{CharacterID: characterID}
	}
	return record
}

// ProgressMap 返回全部进度记录，读失败降级为空表。
func (t *Tracker) ProgressMap() map[string]model.LearningProgress {
	records, err := t.store.ListProgress()
	if err != nil {
		log.Printf("progress read map failed: %v", err)
		return map[string]model.LearningProgress{}
	}
	return records
}

// UpdateCharacterProgress 低层写入原语：completed 为 true 时盖上当前
// 时间戳，starsEarned 按给定值覆盖（不累加）。与 CompleteCharacterLearning
// 的累加语义是两个刻意分开的操作，不要合并。
func (t *Tracker) UpdateCharacterProgress(record model.LearningProgress) error {
	if strings.TrimSpace(record.CharacterID) == "" {
		return ErrCharacterIDRequired
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if record.Completed {
		record.CompletedAt = t.now()
	} else {
		record.CompletedAt = time.Time{}
	}
	if err := t.store.SaveProgress(record); err != nil {
		return fmt.Errorf("write progress record: %w", err)
	}
	t.notify(Event{CharacterID: record.CharacterID, Record: record, TotalStars: t.TotalStars()})
	return nil
}

// CompleteCharacterLearning 面向界面的完成操作：读出已有记录，把新得的
// 星星累加到历史星星上，标记完成并刷新时间戳，同时累加全局星星计数、
// 更新旧版学习记录（次数 +1）。
func (t *Tracker) CompleteCharacterLearning(characterID string, character string, starsEarned int) (model.LearningProgress, error) {
	if strings.TrimSpace(characterID) == "" {
		return model.LearningProgress{}, ErrCharacterIDRequired
	}
	if starsEarned < 0 {
		return model.LearningProgress{}, ErrNegativeStars
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	existing, _, err := t.store.GetProgress(characterID)
	if err != nil {
		return model.LearningProgress{}, fmt.Errorf("read progress record: %w", err)
	}

	now := t.now()
	record := model.LearningProgress{
		CharacterID: characterID,
		Completed:   true,
		CompletedAt: now,
		LastLearned: now,
		StarsEarned: existing.StarsEarned + starsEarned,
	}
	if err := t.store.SaveProgress(record); err != nil {
		return model.LearningProgress{}, fmt.Errorf("write progress record: %w", err)
	}

	totalStars := t.TotalStars() + starsEarned
	if err := t.store.SetTotalStars(totalStars); err != nil {
		return model.LearningProgress{}, fmt.Errorf("write total stars: %w", err)
	}

	if err := t.upsertLearned(characterID, character, now); err != nil {
		return model.LearningProgress{}, fmt.Errorf("write learned list: %w", err)
	}

	t.notify(Event{CharacterID: characterID, Record: record, TotalStars: totalStars})
	return record, nil
}

func (t *Tracker) upsertLearned(characterID string, character string, now time.Time) error {
	list := t.LearnedCharacters()
	found := false
	for i := range list {
		if list[i].ID == characterID {
			list[i].Count++
			list[i].LastLearned = now
			if character != "" {
				list[i].Character = character
			}
			found = true
			break
		}
	}
	if !found {
		list = append(list, model.LearnedCharacter{
			ID:          characterID,
			Character:   character,
			Count:       1,
			LastLearned: now,
		})
	}
	return t.store.SaveLearned(list)
}

// CalculateCategoryProgress 给定某分类的权威字表（来自数据加载器），
// 与已学集合求交集。空字表得到全零结果。
func (t *Tracker) CalculateCategoryProgress(categoryName string, characters []model.HanziCharacter) model.CategoryProgress {
	learnedSet := make(map[string]struct{})
	for _, learned := range t.LearnedCharacters() {
		learnedSet[learned.ID] = struct{}{}
	}

	result := model.CategoryProgress{
		CategoryName:      categoryName,
		TotalCount:        len(characters),
		LearnedCharacters: make([]string, 0),
	}
	for _, hanzi := range characters {
		if _, ok := learnedSet[hanzi.ID]; ok {
			result.LearnedCount++
			result.LearnedCharacters = append(result.LearnedCharacters, hanzi.ID)
		}
	}
	return result
}

// CalculateAllCategoryProgress 独立拉取每个分类分片后汇总进度。
// 某个分片拉取失败只影响该分类：退回 {总数=配置值, 已学=0}，
// 不中断整体汇总。
func (t *Tracker) CalculateAllCategoryProgress(ctx context.Context, master *model.MasterConfig) []model.CategoryProgress {
	if master == nil {
		return []model.CategoryProgress{}
	}
	result := make([]model.CategoryProgress, 0, len(master.Categories))
	for _, entry := range master.Categories {
		shard, err := t.fetchShard(ctx, entry.File)
		if err != nil {
			log.Printf("category progress shard fetch failed: category=%s file=%s err=%v", entry.Name, entry.File, err)
			result = append(result, model.CategoryProgress{
				CategoryName:      entry.Name,
				TotalCount:        entry.Count,
				LearnedCharacters: make([]string, 0),
			})
			continue
		}
		result = append(result, t.CalculateCategoryProgress(entry.Name, shard))
	}
	return result
}

func (t *Tracker) fetchShard(ctx context.Context, file string) ([]model.HanziCharacter, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/"+file, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", file, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var shard []model.HanziCharacter
	if err := json.Unmarshal(body, &shard); err != nil {
		return nil, err
	}
	return shard, nil
}

// CategoryProgressSummary 按分类聚合完成度：completed 以进度表的
// Completed 标记为准，percentage 四舍五入，total 为 0 时取 0。
func (t *Tracker) CategoryProgressSummary(characters []model.HanziCharacter) map[string]model.ProgressSummary {
	records := t.ProgressMap()

	buckets := make(map[string]*model.ProgressSummary)
	for _, hanzi := range characters {
		bucket, ok := buckets[hanzi.Category]
		if !ok {
			bucket = &model.ProgressSummary{}
			buckets[hanzi.Category] = bucket
		}
		bucket.Total++
		if records[hanzi.ID].Completed {
			bucket.Completed++
		}
	}

	result := make(map[string]model.ProgressSummary, len(buckets))
	for name, bucket := range buckets {
		bucket.Percentage = percentage(bucket.Completed, bucket.Total)
		result[name] = *bucket
	}
	return result
}

// OverallProgress 跨全部分类折叠成单个汇总。
func (t *Tracker) OverallProgress(characters []model.HanziCharacter) model.ProgressSummary {
	records := t.ProgressMap()

	summary := model.ProgressSummary{Total: len(characters)}
	for _, hanzi := range characters {
		if records[hanzi.ID].Completed {
			summary.Completed++
		}
	}
	summary.Percentage = percentage(summary.Completed, summary.Total)
	return summary
}

func percentage(completed int, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// SetNowFunc 仅供测试替换时间源。
func (t *Tracker) SetNowFunc(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}
