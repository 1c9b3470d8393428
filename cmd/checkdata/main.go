// checkdata 离线校验字库配置目录：分片与索引一致、编号全局唯一、
// 数量声明与实际相符。离线管线产出新字库后先过一遍再上线。
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"hanzibee/internal/dataset"
	"hanzibee/internal/model"
)

func main() {
	dir := flag.String("dir", "data/configs", "dataset config directory")
	flag.Parse()

	violations, warnings := run(*dir)
	for _, warning := range warnings {
		log.Printf("warn: %s", warning)
	}
	for _, violation := range violations {
		log.Printf("error: %s", violation)
	}
	if len(violations) > 0 {
		log.Fatalf("check failed: %d error(s), %d warning(s)", len(violations), len(warnings))
	}
	log.Printf("check passed: 0 error(s), %d warning(s)", len(warnings))
}

func run(dir string) (violations []string, warnings []string) {
	var master model.MasterConfig
	if err := readJSON(filepath.Join(dir, dataset.MasterConfigFile), &master); err != nil {
		return []string{fmt.Sprintf("read %s: %v", dataset.MasterConfigFile, err)}, nil
	}

	var index model.IndexConfig
	if err := readJSON(filepath.Join(dir, dataset.IndexConfigFile), &index); err != nil {
		return []string{fmt.Sprintf("read %s: %v", dataset.IndexConfigFile, err)}, nil
	}

	seen := make(map[string]string)
	total := 0
	for _, entry := range master.Categories {
		shard, errs := checkShard(dir, "category", entry, seen)
		violations = append(violations, errs...)
		total += len(shard)
		warnings = append(warnings, checkIndexCoverage(index, "category", entry.Name, index.CategoryIndex[entry.Name], shard)...)
		for _, hanzi := range shard {
			warnings = append(warnings, checkEvolutionOrder(hanzi)...)
		}
	}
	// 阶段分片与分类分片收录同一批汉字，编号唯一性只在各自维度内检查。
	stageSeen := make(map[string]string)
	for _, entry := range master.LearningStages {
		shard, errs := checkShard(dir, "learning stage", entry, stageSeen)
		violations = append(violations, errs...)
		warnings = append(warnings, checkIndexCoverage(index, "learning stage", entry.Name, index.LearningStageIndex[entry.Name], shard)...)
	}

	if master.TotalCharacters != total {
		warnings = append(warnings, fmt.Sprintf(
			"totalCharacters declares %d but category shards hold %d", master.TotalCharacters, total))
	}
	for glyph, entry := range index.CharacterIndex {
		if !strings.HasPrefix(entry.ID, glyph+"_") && entry.ID != glyph {
			warnings = append(warnings, fmt.Sprintf(
				"character index %q points at id %q whose glyph prefix does not match", glyph, entry.ID))
		}
	}
	return violations, warnings
}

func checkShard(dir, kind string, entry model.CategoryEntry, seen map[string]string) ([]model.HanziCharacter, []string) {
	var violations []string
	var shard []model.HanziCharacter
	if err := readJSON(filepath.Join(dir, entry.File), &shard); err != nil {
		return nil, []string{fmt.Sprintf("%s %q: read %s: %v", kind, entry.Name, entry.File, err)}
	}

	for _, hanzi := range shard {
		if strings.TrimSpace(hanzi.ID) == "" {
			violations = append(violations, fmt.Sprintf("%s %q: character %q has empty id", kind, entry.Name, hanzi.Character))
			continue
		}
		if prev, ok := seen[hanzi.ID]; ok {
			violations = append(violations, fmt.Sprintf("%s %q: duplicate id %q (already in %q)", kind, entry.Name, hanzi.ID, prev))
			continue
		}
		seen[hanzi.ID] = entry.Name
	}
	if entry.Count != len(shard) {
		violations = append(violations, fmt.Sprintf(
			"%s %q: count declares %d but %s holds %d", kind, entry.Name, entry.Count, entry.File, len(shard)))
	}
	return shard, violations
}

func checkIndexCoverage(index model.IndexConfig, kind, name string, indexed []string, shard []model.HanziCharacter) []string {
	var warnings []string
	inShard := make(map[string]bool, len(shard))
	for _, hanzi := range shard {
		inShard[hanzi.ID] = true
	}
	for _, id := range indexed {
		if !inShard[id] {
			warnings = append(warnings, fmt.Sprintf("%s %q: index lists id %q missing from shard", kind, name, id))
		}
	}
	for _, hanzi := range shard {
		if entry, ok := index.CharacterIndex[hanzi.Character]; !ok {
			warnings = append(warnings, fmt.Sprintf("%s %q: character %q absent from character index", kind, name, hanzi.Character))
		} else if kind == "category" && entry.Category != hanzi.Category {
			warnings = append(warnings, fmt.Sprintf(
				"%s %q: character %q indexed under category %q", kind, name, hanzi.Character, entry.Category))
		}
	}
	return warnings
}

// checkEvolutionOrder 字形演化卡片按年代从古到今排列，乱序只告警。
func checkEvolutionOrder(hanzi model.HanziCharacter) []string {
	var warnings []string
	for i := 1; i < len(hanzi.EvolutionStages); i++ {
		if hanzi.EvolutionStages[i].Timestamp < hanzi.EvolutionStages[i-1].Timestamp {
			warnings = append(warnings, fmt.Sprintf(
				"character %q: evolution stage %q out of chronological order", hanzi.ID, hanzi.EvolutionStages[i].ScriptName))
		}
	}
	return warnings
}

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
