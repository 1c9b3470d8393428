package store

import (
	"errors"
	"strings"
)

const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
	EngineGData  = "gdata"
)

// NewByEngine 根据引擎名创建进度存储。path 对 json/sqlite 是数据文件路径，
// 对 gdata 是应用名（数据目录由平台决定）。
func NewByEngine(engine string, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(path)
	case EngineJSON:
		return NewJSONStore(path)
	case EngineGData:
		return NewGDataStore(path)
	default:
		return nil, errors.New("unsupported store engine: " + engine)
	}
}
