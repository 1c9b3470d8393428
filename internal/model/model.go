package model

import (
	"encoding/json"
	"time"
)

// HanziCharacter 一个可学习的汉字条目。JSON 字段名与字库配置文件保持一致。
type HanziCharacter struct {
	ID              string           `json:"id"`
	Character       string           `json:"character"`
	Pinyin          string           `json:"pinyin"`
	Meaning         string           `json:"meaning"`
	Emoji           string           `json:"emoji"`
	Theme           string           `json:"theme"`
	Category        string           `json:"category"`
	LearningStage   string           `json:"learningStage"`
	Assets          AssetPaths       `json:"assets"`
	EvolutionStages []EvolutionStage `json:"evolutionStages"`
}

type AssetPaths struct {
	PronunciationAudio  string `json:"pronunciationAudio"`
	MainIllustration    string `json:"mainIllustration"`
	LottieAnimation     string `json:"lottieAnimation"`
	RealObjectImage     string `json:"realObjectImage"`
	RealObjectCardColor string `json:"realObjectCardColor,omitempty"`
}

// EvolutionStage 一个历史字形阶段，按 Timestamp 从远古到现代升序排列。
type EvolutionStage struct {
	ScriptName     string `json:"scriptName"`
	Timestamp      int    `json:"timestamp"`
	NarrationAudio string `json:"narrationAudio"`
	Explanation    string `json:"explanation"`
	ScriptText     string `json:"scriptText"`
	FontFamily     string `json:"fontFamily"`
	CardColor      string `json:"cardColor"`
}

type CategoryEntry struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Count int    `json:"count"`
}

type MasterConfig struct {
	Categories      []CategoryEntry `json:"categories"`
	LearningStages  []CategoryEntry `json:"learningStages"`
	TotalCharacters int             `json:"totalCharacters"`
}

type IndexEntry struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	LearningStage string `json:"learningStage"`
}

type IndexConfig struct {
	CharacterIndex     map[string]IndexEntry `json:"characterIndex"`
	CategoryIndex      map[string][]string   `json:"categoryIndex"`
	LearningStageIndex map[string][]string   `json:"learningStageIndex"`
}

// LearningProgress 单个汉字的学习进度记录，与持久化载荷同构。
type LearningProgress struct {
	CharacterID string    `json:"characterId"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completedAt"`
	LastLearned time.Time `json:"lastLearned"`
	StarsEarned int       `json:"starsEarned"`
}

// MarshalJSON 省略零值时间戳：未完成的记录在 API 与存储载荷里
// 都不带 completedAt/lastLearned 字段，而不是序列化出公元元年。
func (p LearningProgress) MarshalJSON() ([]byte, error) {
	type payload struct {
		CharacterID string     `json:"characterId"`
		Completed   bool       `json:"completed"`
		CompletedAt *time.Time `json:"completedAt,omitempty"`
		LastLearned *time.Time `json:"lastLearned,omitempty"`
		StarsEarned int        `json:"starsEarned"`
	}
	out := payload{
		CharacterID: p.CharacterID,
		Completed:   p.Completed,
		StarsEarned: p.StarsEarned,
	}
	if !p.CompletedAt.IsZero() {
		out.CompletedAt = &p.CompletedAt
	}
	if !p.LastLearned.IsZero() {
		out.LastLearned = &p.LastLearned
	}
	return json.Marshal(out)
}

// LearnedCharacter 旧版扁平格式的学习记录，仍然承载学习次数统计。
type LearnedCharacter struct {
	ID          string    `json:"id"`
	Character   string    `json:"character"`
	Count       int       `json:"count"`
	LastLearned time.Time `json:"lastLearned"`
}

type CategoryProgress struct {
	CategoryName      string   `json:"category_name"`
	TotalCount        int      `json:"total_count"`
	LearnedCount      int      `json:"learned_count"`
	LearnedCharacters []string `json:"learned_characters"`
}

type ProgressSummary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Statistics struct {
	TotalCharacters     int          `json:"total_characters"`
	CategoriesCount     int          `json:"categories_count"`
	LearningStagesCount int          `json:"learning_stages_count"`
	Categories          []CountEntry `json:"categories"`
	LearningStages      []CountEntry `json:"learning_stages"`
}
