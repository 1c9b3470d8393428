package progress_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hanzibee/internal/model"
	"hanzibee/internal/progress"
	"hanzibee/internal/store"
)

func newTestTracker(t *testing.T) *progress.Tracker {
	t.Helper()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	return progress.New(st, "", nil)
}

func TestCompleteCharacterLearningAccumulatesStars(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)

	first, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 3)
	if err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}
	if first.StarsEarned != 3 || !first.Completed {
		t.Fatalf("unexpected first record: %+v", first)
	}

	second, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 5)
	if err != nil {
		t.Fatalf("second CompleteCharacterLearning() error = %v", err)
	}
	if second.StarsEarned != 8 {
		t.Fatalf("stars must accumulate across completions, got %d", second.StarsEarned)
	}
	if got := tracker.TotalStars(); got != 8 {
		t.Fatalf("expected total stars 8, got %d", got)
	}
	if got := tracker.CharacterLearnCount("火_huo_1"); got != 2 {
		t.Fatalf("expected learn count 2, got %d", got)
	}
	if !tracker.IsCharacterLearned("火_huo_1") {
		t.Fatal("expected character marked learned")
	}
}

func TestCompleteCharacterLearningConcurrentCompletions(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CompleteCharacterLearning() error = %v", err)
		}
	}

	// 并发完成同一个字，每颗星都要落账。
	if got := tracker.TotalStars(); got != workers {
		t.Fatalf("expected %d total stars, got %d", workers, got)
	}
	record := tracker.CharacterProgress("火_huo_1")
	if record.StarsEarned != workers {
		t.Fatalf("expected %d accumulated stars, got %d", workers, record.StarsEarned)
	}
	if got := tracker.CharacterLearnCount("火_huo_1"); got != workers {
		t.Fatalf("expected learn count %d, got %d", workers, got)
	}
}

func TestCompleteCharacterLearningValidation(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)

	if _, err := tracker.CompleteCharacterLearning("", "火", 1); !errors.Is(err, progress.ErrCharacterIDRequired) {
		t.Fatalf("expected ErrCharacterIDRequired, got %v", err)
	}
	if _, err := tracker.CompleteCharacterLearning("火_huo_1", "火", -1); !errors.Is(err, progress.ErrNegativeStars) {
		t.Fatalf("expected ErrNegativeStars, got %v", err)
	}
}

func TestUpdateCharacterProgressOverwritesStars(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker.SetNowFunc(func() time.Time { return fixed })

	if err := tracker.UpdateCharacterProgress(model.LearningProgress{
		CharacterID: "水_shui_1",
		Completed:   true,
		StarsEarned: 9,
	}); err != nil {
		t.Fatalf("UpdateCharacterProgress() error = %v", err)
	}

	record := tracker.CharacterProgress("水_shui_1")
	if record.StarsEarned != 9 || !record.CompletedAt.Equal(fixed) {
		t.Fatalf("unexpected record after completed update: %+v", record)
	}

	// 覆盖语义：后写的值直接生效，不做累加；未完成时清空完成时间。
	if err := tracker.UpdateCharacterProgress(model.LearningProgress{
		CharacterID: "水_shui_1",
		Completed:   false,
		StarsEarned: 2,
	}); err != nil {
		t.Fatalf("second UpdateCharacterProgress() error = %v", err)
	}
	record = tracker.CharacterProgress("水_shui_1")
	if record.StarsEarned != 2 {
		t.Fatalf("expected stars overwritten to 2, got %d", record.StarsEarned)
	}
	if !record.CompletedAt.IsZero() {
		t.Fatalf("expected completed_at cleared, got %v", record.CompletedAt)
	}
	// 低层写入不动全局星星计数。
	if got := tracker.TotalStars(); got != 0 {
		t.Fatalf("expected total stars untouched, got %d", got)
	}
}

func TestCharacterProgressImplicitZeroRecord(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	record := tracker.CharacterProgress("木_mu_1")
	if record.CharacterID != "木_mu_1" || record.Completed || record.StarsEarned != 0 {
		t.Fatalf("expected implicit zero record, got %+v", record)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	var events []progress.Event
	tracker.Subscribe(func(event progress.Event) {
		events = append(events, event)
	})

	if _, err := tracker.CompleteCharacterLearning("鸟_niao_1", "鸟", 2); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].CharacterID != "鸟_niao_1" || events[0].TotalStars != 2 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestOverallProgressRoundsPercentage(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	characters := []model.HanziCharacter{
		{ID: "火_huo_1", Category: "自然"},
		{ID: "水_shui_1", Category: "自然"},
		{ID: "木_mu_1", Category: "自然"},
	}
	if _, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 1); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}

	summary := tracker.OverallProgress(characters)
	if summary.Completed != 1 || summary.Total != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Percentage != 33 {
		t.Fatalf("expected 1/3 rounded to 33, got %d", summary.Percentage)
	}
}

func TestOverallProgressEmptySet(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	summary := tracker.OverallProgress(nil)
	if summary.Completed != 0 || summary.Total != 0 || summary.Percentage != 0 {
		t.Fatalf("expected all-zero summary, got %+v", summary)
	}
}

func TestCategoryProgressSummaryBucketsByCategory(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	characters := []model.HanziCharacter{
		{ID: "火_huo_1", Category: "自然"},
		{ID: "水_shui_1", Category: "自然"},
		{ID: "马_ma_1", Category: "动物"},
		{ID: "鸟_niao_1", Category: "动物"},
	}
	if _, err := tracker.CompleteCharacterLearning("马_ma_1", "马", 3); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}

	buckets := tracker.CategoryProgressSummary(characters)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if got := buckets["动物"]; got.Completed != 1 || got.Total != 2 || got.Percentage != 50 {
		t.Fatalf("unexpected 动物 bucket: %+v", got)
	}
	if got := buckets["自然"]; got.Completed != 0 || got.Total != 2 || got.Percentage != 0 {
		t.Fatalf("unexpected 自然 bucket: %+v", got)
	}
}

func TestCalculateCategoryProgressIntersection(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	if _, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 1); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}
	// 学过但不属于该分类的编号不计入。
	if _, err := tracker.CompleteCharacterLearning("马_ma_1", "马", 1); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}

	result := tracker.CalculateCategoryProgress("自然", []model.HanziCharacter{
		{ID: "火_huo_1"},
		{ID: "水_shui_1"},
	})
	if result.TotalCount != 2 || result.LearnedCount != 1 {
		t.Fatalf("unexpected category progress: %+v", result)
	}
	if len(result.LearnedCharacters) != 1 || result.LearnedCharacters[0] != "火_huo_1" {
		t.Fatalf("unexpected learned list: %+v", result.LearnedCharacters)
	}
}

func TestCalculateAllCategoryProgressIsolatesShardFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/nature.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"火_huo_1","character":"火"},{"id":"水_shui_1","character":"水"}]`))
			return
		}
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	tracker := progress.New(st, server.URL, server.Client())
	if _, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 1); err != nil {
		t.Fatalf("CompleteCharacterLearning() error = %v", err)
	}

	master := &model.MasterConfig{
		Categories: []model.CategoryEntry{
			{Name: "自然", File: "nature.json", Count: 2},
			{Name: "动物", File: "animals.json", Count: 2},
		},
	}
	result := tracker.CalculateAllCategoryProgress(context.Background(), master)
	if len(result) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(result))
	}
	if result[0].CategoryName != "自然" || result[0].LearnedCount != 1 || result[0].TotalCount != 2 {
		t.Fatalf("unexpected healthy category: %+v", result[0])
	}
	// 拉取失败的分类退回配置里的总数，已学按 0 处理。
	if result[1].CategoryName != "动物" || result[1].LearnedCount != 0 || result[1].TotalCount != 2 {
		t.Fatalf("unexpected degraded category: %+v", result[1])
	}
	if result[1].LearnedCharacters == nil {
		t.Fatal("degraded category must keep empty list, not nil")
	}
}

func TestCalculateAllCategoryProgressNilMaster(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t)
	result := tracker.CalculateAllCategoryProgress(context.Background(), nil)
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty slice for nil master, got %#v", result)
	}
}

// faultyStore 所有读写都报错，用来验证读路径的防御性降级。
type faultyStore struct{}

var errStorage = errors.New("storage offline")

func (faultyStore) GetTotalStars() (int, error)          { return 0, errStorage }
func (faultyStore) SetTotalStars(int) error              { return errStorage }
func (faultyStore) ListLearned() ([]model.LearnedCharacter, error) {
	return nil, errStorage
}
func (faultyStore) SaveLearned([]model.LearnedCharacter) error { return errStorage }
func (faultyStore) GetProgress(string) (model.LearningProgress, bool, error) {
	return model.LearningProgress{}, false, errStorage
}
func (faultyStore) ListProgress() (map[string]model.LearningProgress, error) {
	return nil, errStorage
}
func (faultyStore) SaveProgress(model.LearningProgress) error { return errStorage }

func TestReadsDegradeWhenStoreFails(t *testing.T) {
	t.Parallel()

	tracker := progress.New(faultyStore{}, "", nil)

	if got := tracker.TotalStars(); got != 0 {
		t.Fatalf("expected total stars degraded to 0, got %d", got)
	}
	if got := tracker.LearnedCharacters(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty learned list, got %#v", got)
	}
	if got := tracker.ProgressMap(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty progress map, got %#v", got)
	}
	record := tracker.CharacterProgress("火_huo_1")
	if record.CharacterID != "火_huo_1" || record.Completed {
		t.Fatalf("expected implicit zero record, got %+v", record)
	}

	// 写路径如实报错，不吞异常。
	if err := tracker.UpdateCharacterProgress(model.LearningProgress{CharacterID: "火_huo_1"}); !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error surfaced, got %v", err)
	}
	if _, err := tracker.CompleteCharacterLearning("火_huo_1", "火", 1); !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error surfaced, got %v", err)
	}
}
