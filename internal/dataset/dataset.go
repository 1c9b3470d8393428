// Package dataset 内置一套最小可用的示例字库，并提供把字库目录
// 挂载为 HTTP 只读接口的辅助。正式字库由离线管线生成后放入数据目录，
// 示例字库让服务在无数据目录时也能直接跑起来。
package dataset

import (
	"encoding/json"
	"net/http"
	"os"

	"hanzibee/internal/model"
)

const (
	MasterConfigFile = "master-config.json"
	IndexConfigFile  = "index.json"
)

// SampleMasterConfig 示例字库的主配置。
func SampleMasterConfig() model.MasterConfig {
	return model.MasterConfig{
		Categories: []model.CategoryEntry{
			{Name: "自然", File: "nature.json", Count: 3},
			{Name: "动物", File: "animals.json", Count: 2},
		},
		LearningStages: []model.CategoryEntry{
			{Name: "启蒙阶段", File: "stage-1.json", Count: 3},
			{Name: "进阶阶段", File: "stage-2.json", Count: 2},
		},
		TotalCharacters: 5,
	}
}

// SampleCharacters 示例字库的全部汉字，按分类顺序排列。
func SampleCharacters() []model.HanziCharacter {
	return []model.HanziCharacter{
		{
			ID:            "火_huo_1",
			Character:     "火",
			Pinyin:        "huǒ",
			Meaning:       "火焰",
			Emoji:         "🔥",
			Theme:         "red",
			Category:      "自然",
			LearningStage: "启蒙阶段",
			Assets: model.AssetPaths{
				PronunciationAudio: "/assets/audio/huo.mp3",
				MainIllustration:   "/assets/illustrations/huo.svg",
				LottieAnimation:    "/assets/lottie/huo.json",
				RealObjectImage:    "/assets/photos/huo.webp",
			},
			EvolutionStages: []model.EvolutionStage{
				{ScriptName: "甲骨文", Timestamp: -1600, NarrationAudio: "/assets/audio/huo_oracle.mp3", Explanation: "像火苗向上跳动的样子。", ScriptText: "火", FontFamily: "OracleBone", CardColor: "#F4E3C1"},
				{ScriptName: "金文", Timestamp: -1000, NarrationAudio: "/assets/audio/huo_bronze.mp3", Explanation: "火苗的线条变得圆润。", ScriptText: "火", FontFamily: "BronzeScript", CardColor: "#D9C7A7"},
				{ScriptName: "楷书", Timestamp: 200, NarrationAudio: "/assets/audio/huo_modern.mp3", Explanation: "今天我们书写的火字。", ScriptText: "火", FontFamily: "KaiTi", CardColor: "#FFE8D6"},
			},
		},
		{
			ID:            "水_shui_1",
			Character:     "水",
			Pinyin:        "shuǐ",
			Meaning:       "水流",
			Emoji:         "💧",
			Theme:         "blue",
			Category:      "自然",
			LearningStage: "启蒙阶段",
			Assets: model.AssetPaths{
				PronunciationAudio: "/assets/audio/shui.mp3",
				MainIllustration:   "/assets/illustrations/shui.svg",
				LottieAnimation:    "/assets/lottie/shui.json",
				RealObjectImage:    "/assets/photos/shui.webp",
			},
			EvolutionStages: []model.EvolutionStage{
				{ScriptName: "甲骨文", Timestamp: -1600, NarrationAudio: "/assets/audio/shui_oracle.mp3", Explanation: "像一条弯弯的河流。", ScriptText: "水", FontFamily: "OracleBone", CardColor: "#C1D9F4"},
				{ScriptName: "楷书", Timestamp: 200, NarrationAudio: "/assets/audio/shui_modern.mp3", Explanation: "今天我们书写的水字。", ScriptText: "水", FontFamily: "KaiTi", CardColor: "#D6EBFF"},
			},
		},
		{
			ID:            "木_mu_1",
			Character:     "木",
			Pinyin:        "mù",
			Meaning:       "树木",
			Emoji:         "🌳",
			Theme:         "green",
			Category:      "自然",
			LearningStage: "进阶阶段",
			Assets: model.AssetPaths{
				PronunciationAudio: "/assets/audio/mu.mp3",
				MainIllustration:   "/assets/illustrations/mu.svg",
				LottieAnimation:    "/assets/lottie/mu.json",
				RealObjectImage:    "/assets/photos/mu.webp",
			},
			EvolutionStages: []model.EvolutionStage{
				{ScriptName: "甲骨文", Timestamp: -1600, NarrationAudio: "/assets/audio/mu_oracle.mp3", Explanation: "上有枝丫，下有根须。", ScriptText: "木", FontFamily: "OracleBone", CardColor: "#C9E4C5"},
				{ScriptName: "楷书", Timestamp: 200, NarrationAudio: "/assets/audio/mu_modern.mp3", Explanation: "今天我们书写的木字。", ScriptText: "木", FontFamily: "KaiTi", CardColor: "#E3F4DE"},
			},
		},
		{
			ID:            "马_ma_1",
			Character:     "马",
			Pinyin:        "mǎ",
			Meaning:       "骏马",
			Emoji:         "🐎",
			Theme:         "brown",
			Category:      "动物",
			LearningStage: "启蒙阶段",
			Assets: model.AssetPaths{
				PronunciationAudio: "/assets/audio/ma.mp3",
				MainIllustration:   "/assets/illustrations/ma.svg",
				LottieAnimation:    "/assets/lottie/ma.json",
				RealObjectImage:    "/assets/photos/ma.webp",
			},
			EvolutionStages: []model.EvolutionStage{
				{ScriptName: "甲骨文", Timestamp: -1600, NarrationAudio: "/assets/audio/ma_oracle.mp3", Explanation: "长长的鬃毛清晰可见。", ScriptText: "马", FontFamily: "OracleBone", CardColor: "#E4D5C5"},
				{ScriptName: "楷书", Timestamp: 200, NarrationAudio: "/assets/audio/ma_modern.mp3", Explanation: "今天我们书写的马字。", ScriptText: "马", FontFamily: "KaiTi", CardColor: "#F4E8DE"},
			},
		},
		{
			ID:            "鸟_niao_1",
			Character:     "鸟",
			Pinyin:        "niǎo",
			Meaning:       "飞鸟",
			Emoji:         "🐦",
			Theme:         "cyan",
			Category:      "动物",
			LearningStage: "进阶阶段",
			Assets: model.AssetPaths{
				PronunciationAudio: "/assets/audio/niao.mp3",
				MainIllustration:   "/assets/illustrations/niao.svg",
				LottieAnimation:    "/assets/lottie/niao.json",
				RealObjectImage:    "/assets/photos/niao.webp",
			},
			EvolutionStages: []model.EvolutionStage{
				{ScriptName: "甲骨文", Timestamp: -1600, NarrationAudio: "/assets/audio/niao_oracle.mp3", Explanation: "侧着身子的小鸟轮廓。", ScriptText: "鸟", FontFamily: "OracleBone", CardColor: "#C5E4E0"},
				{ScriptName: "楷书", Timestamp: 200, NarrationAudio: "/assets/audio/niao_modern.mp3", Explanation: "今天我们书写的鸟字。", ScriptText: "鸟", FontFamily: "KaiTi", CardColor: "#DEF4F0"},
			},
		},
	}
}

// SampleIndexConfig 由示例字表推导出的索引配置。
func SampleIndexConfig() model.IndexConfig {
	index := model.IndexConfig{
		CharacterIndex:     make(map[string]model.IndexEntry),
		CategoryIndex:      make(map[string][]string),
		LearningStageIndex: make(map[string][]string),
	}
	for _, hanzi := range SampleCharacters() {
		index.CharacterIndex[hanzi.Character] = model.IndexEntry{
			ID:            hanzi.ID,
			Category:      hanzi.Category,
			LearningStage: hanzi.LearningStage,
		}
		index.CategoryIndex[hanzi.Category] = append(index.CategoryIndex[hanzi.Category], hanzi.ID)
		index.LearningStageIndex[hanzi.LearningStage] = append(index.LearningStageIndex[hanzi.LearningStage], hanzi.ID)
	}
	return index
}

// SampleFiles 把示例字库渲染成文件名到 JSON 内容的映射，
// 布局与离线管线产出的配置目录一致。
func SampleFiles() map[string][]byte {
	master := SampleMasterConfig()
	characters := SampleCharacters()

	files := map[string][]byte{
		MasterConfigFile: mustJSON(master),
		IndexConfigFile:  mustJSON(SampleIndexConfig()),
	}
	for _, entry := range master.Categories {
		shard := make([]model.HanziCharacter, 0)
		for _, hanzi := range characters {
			if hanzi.Category == entry.Name {
				shard = append(shard, hanzi)
			}
		}
		files[entry.File] = mustJSON(shard)
	}
	for _, entry := range master.LearningStages {
		shard := make([]model.HanziCharacter, 0)
		for _, hanzi := range characters {
			if hanzi.LearningStage == entry.Name {
				shard = append(shard, hanzi)
			}
		}
		files[entry.File] = mustJSON(shard)
	}
	return files
}

// SampleHandler 把示例字库挂成只读 HTTP 接口，测试与缺省启动共用。
func SampleHandler() http.Handler {
	files := SampleFiles()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		data, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(data)
	})
}

// DirHandler 把本地字库目录挂成只读 HTTP 接口。
func DirHandler(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

// DirExists 判断字库目录是否就位（至少包含主配置文件）。
func DirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(dir + string(os.PathSeparator) + MasterConfigFile)
	return err == nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
