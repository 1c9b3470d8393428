package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"hanzibee/internal/dataset"
	"hanzibee/internal/loader"
	"hanzibee/internal/progress"
	"hanzibee/internal/service"
	"hanzibee/internal/store"
)

func newTestService(t *testing.T) *service.Service {
	t.Helper()

	server := httptest.NewServer(dataset.SampleHandler())
	t.Cleanup(server.Close)

	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ld := loader.New(server.URL, server.Client())
	tracker := progress.New(st, server.URL, server.Client())
	return service.New(ld, tracker)
}

func TestCategoriesLazyInitialize(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	names, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(names) != 2 || names[0] != "自然" || names[1] != "动物" {
		t.Fatalf("unexpected categories: %+v", names)
	}

	stages, err := svc.LearningStages(context.Background())
	if err != nil {
		t.Fatalf("LearningStages() error = %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("unexpected stages: %+v", stages)
	}
}

func TestCharacterValidationAndNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Character(ctx, "  "); !errors.Is(err, service.ErrCharacterIDRequired) {
		t.Fatalf("expected ErrCharacterIDRequired, got %v", err)
	}
	if _, err := svc.Character(ctx, "龙_long_1"); !errors.Is(err, service.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}

	hanzi, err := svc.Character(ctx, "火_huo_1")
	if err != nil {
		t.Fatalf("Character() error = %v", err)
	}
	if hanzi.Character != "火" || hanzi.Category != "自然" {
		t.Fatalf("unexpected character: %+v", hanzi)
	}
}

func TestCharacterByText(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	hanzi, err := svc.CharacterByText(ctx, "马")
	if err != nil {
		t.Fatalf("CharacterByText() error = %v", err)
	}
	if hanzi.ID != "马_ma_1" {
		t.Fatalf("unexpected character: %+v", hanzi)
	}
	if _, err := svc.CharacterByText(ctx, "龙"); !errors.Is(err, service.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}
}

func TestCharactersByCategoryValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CharactersByCategory(ctx, ""); !errors.Is(err, service.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.CharactersByCategory(ctx, "plants"); !errors.Is(err, loader.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	shard, err := svc.CharactersByStage(ctx, "进阶阶段")
	if err != nil {
		t.Fatalf("CharactersByStage() error = %v", err)
	}
	if len(shard) != 2 {
		t.Fatalf("expected 2 characters in 进阶阶段, got %d", len(shard))
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if _, err := svc.Search(context.Background(), "  "); !errors.Is(err, service.ErrQueryRequired) {
		t.Fatalf("expected ErrQueryRequired, got %v", err)
	}
	results, err := svc.Search(context.Background(), "shuǐ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "水_shui_1" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestCompleteLearningFlow(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: ""}); !errors.Is(err, service.ErrCharacterIDRequired) {
		t.Fatalf("expected ErrCharacterIDRequired, got %v", err)
	}
	if _, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "火_huo_1", StarsEarned: -1}); !errors.Is(err, service.ErrNegativeStars) {
		t.Fatalf("expected ErrNegativeStars, got %v", err)
	}
	if _, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "龙_long_1", StarsEarned: 1}); !errors.Is(err, service.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}

	first, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "火_huo_1", StarsEarned: 3})
	if err != nil {
		t.Fatalf("CompleteLearning() error = %v", err)
	}
	if first.Record.StarsEarned != 3 || first.TotalStars != 3 || first.LearnCount != 1 {
		t.Fatalf("unexpected first response: %+v", first)
	}

	second, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "火_huo_1", StarsEarned: 5})
	if err != nil {
		t.Fatalf("second CompleteLearning() error = %v", err)
	}
	if second.Record.StarsEarned != 8 || second.TotalStars != 8 || second.LearnCount != 2 {
		t.Fatalf("unexpected second response: %+v", second)
	}
	if got := svc.TotalStars(); got != 8 {
		t.Fatalf("TotalStars() = %d", got)
	}
}

func TestUpdateProgressParsesTimestamp(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	if _, err := svc.UpdateProgress(service.UpdateProgressRequest{CharacterID: "火_huo_1", LastLearned: "昨天"}); err == nil {
		t.Fatal("expected parse error for malformed timestamp")
	}

	record, err := svc.UpdateProgress(service.UpdateProgressRequest{
		CharacterID: "火_huo_1",
		Completed:   true,
		StarsEarned: 4,
		LastLearned: "2026-03-01T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	if !record.Completed || record.StarsEarned != 4 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestOverviewAggregatesCategories(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "火_huo_1", StarsEarned: 3}); err != nil {
		t.Fatalf("CompleteLearning() error = %v", err)
	}

	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.TotalStars != 3 || overview.LearnedCount != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if overview.Overall.Total != 5 || overview.Overall.Completed != 1 || overview.Overall.Percentage != 20 {
		t.Fatalf("unexpected overall summary: %+v", overview.Overall)
	}
	if got := overview.Categories["自然"]; got.Completed != 1 || got.Total != 3 || got.Percentage != 33 {
		t.Fatalf("unexpected 自然 summary: %+v", got)
	}
	if got := overview.Categories["动物"]; got.Completed != 0 || got.Total != 2 {
		t.Fatalf("unexpected 动物 summary: %+v", got)
	}
}

func TestCategoryProgressEndpoints(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CompleteLearning(ctx, service.CompleteLearningRequest{CharacterID: "马_ma_1", StarsEarned: 2}); err != nil {
		t.Fatalf("CompleteLearning() error = %v", err)
	}

	single, err := svc.CategoryProgress(ctx, "动物")
	if err != nil {
		t.Fatalf("CategoryProgress() error = %v", err)
	}
	if single.TotalCount != 2 || single.LearnedCount != 1 {
		t.Fatalf("unexpected category progress: %+v", single)
	}

	all, err := svc.AllCategoryProgress(ctx)
	if err != nil {
		t.Fatalf("AllCategoryProgress() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(all))
	}
	if all[1].CategoryName != "动物" || all[1].LearnedCount != 1 {
		t.Fatalf("unexpected 动物 progress: %+v", all[1])
	}
}

func TestUploadAssetUnavailableWithoutUploader(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if _, err := svc.UploadAsset(context.Background(), service.UploadAssetRequest{}); !errors.Is(err, service.ErrAssetRequired) {
		t.Fatalf("expected ErrAssetRequired, got %v", err)
	}
	if _, err := svc.UploadAsset(context.Background(), service.UploadAssetRequest{Bytes: []byte("ogg")}); !errors.Is(err, service.ErrUploadUnavailable) {
		t.Fatalf("expected ErrUploadUnavailable, got %v", err)
	}
}
