package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="zh-CN">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Hanzi Bee API Swagger</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    const docPath = window.location.pathname.startsWith('/swagger')
      ? '/swagger/openapi.json'
      : '/docs/openapi.json';
    window.ui = SwaggerUIBundle({
      url: docPath,
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.Split(forwarded, ",")[0]
		scheme = strings.TrimSpace(scheme)
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host
}

func openAPISpec(serverURL string) map[string]any {
	jsonOK := func(description string, schemaRef string) map[string]any {
		response := map[string]any{"description": description}
		if schemaRef != "" {
			response["content"] = map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			}
		}
		return response
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "Hanzi Bee API",
			"description": "儿童汉字学习后端 API 文档",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "健康检查",
					"operationId": "healthz",
					"responses": map[string]any{
						"200": jsonOK("OK", ""),
					},
				},
			},
			"/api/v1/categories": map[string]any{
				"get": map[string]any{
					"summary":     "列出全部汉字分类",
					"operationId": "categories",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"503": map[string]any{"description": "字库配置加载失败"},
					},
				},
			},
			"/api/v1/learning-stages": map[string]any{
				"get": map[string]any{
					"summary":     "列出全部学习阶段",
					"operationId": "learningStages",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"503": map[string]any{"description": "字库配置加载失败"},
					},
				},
			},
			"/api/v1/characters": map[string]any{
				"get": map[string]any{
					"summary":     "按分类或学习阶段加载汉字",
					"operationId": "characters",
					"parameters": []map[string]any{
						{"name": "category", "in": "query", "schema": map[string]string{"type": "string"}},
						{"name": "stage", "in": "query", "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"400": map[string]any{"description": "缺少分类或阶段参数"},
						"404": map[string]any{"description": "分类或阶段不存在"},
						"503": map[string]any{"description": "字库分片加载失败"},
					},
				},
			},
			"/api/v1/characters/search": map[string]any{
				"get": map[string]any{
					"summary":     "按字形、拼音或释义搜索汉字",
					"operationId": "searchCharacters",
					"parameters": []map[string]any{
						{"name": "q", "in": "query", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"400": map[string]any{"description": "缺少搜索关键词"},
					},
				},
			},
			"/api/v1/characters/by-text": map[string]any{
				"get": map[string]any{
					"summary":     "按字形精确查找汉字",
					"operationId": "characterByText",
					"parameters": []map[string]any{
						{"name": "text", "in": "query", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", "#/components/schemas/HanziCharacter"),
						"404": map[string]any{"description": "汉字未收录"},
					},
				},
			},
			"/api/v1/characters/{id}": map[string]any{
				"get": map[string]any{
					"summary":     "按编号加载单个汉字",
					"operationId": "characterByID",
					"parameters": []map[string]any{
						{"name": "id", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", "#/components/schemas/HanziCharacter"),
						"404": map[string]any{"description": "汉字未收录"},
					},
				},
			},
			"/api/v1/statistics": map[string]any{
				"get": map[string]any{
					"summary":     "字库规模统计",
					"operationId": "statistics",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
					},
				},
			},
			"/api/v1/progress": map[string]any{
				"get": map[string]any{
					"summary":     "学习进度总览（按分类汇总 + 整体完成度 + 总星数）",
					"operationId": "progressOverview",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
					},
				},
			},
			"/api/v1/progress/categories": map[string]any{
				"get": map[string]any{
					"summary":     "独立拉取各分类分片后统计已学交集，单分类失败自动降级",
					"operationId": "allCategoryProgress",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
					},
				},
			},
			"/api/v1/progress/category": map[string]any{
				"get": map[string]any{
					"summary":     "单个分类的已学进度",
					"operationId": "categoryProgress",
					"parameters": []map[string]any{
						{"name": "name", "in": "query", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", "#/components/schemas/CategoryProgress"),
						"404": map[string]any{"description": "分类不存在"},
					},
				},
			},
			"/api/v1/progress/characters/{id}": map[string]any{
				"get": map[string]any{
					"summary":     "单个汉字的进度记录（未学过返回隐式零值记录）",
					"operationId": "characterProgress",
					"parameters": []map[string]any{
						{"name": "id", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", "#/components/schemas/LearningProgress"),
					},
				},
			},
			"/api/v1/progress/complete": map[string]any{
				"post": map[string]any{
					"summary":     "完成一次学习挑战，星星累加到历史记录",
					"operationId": "completeLearning",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/CompleteLearningRequest"},
							},
						},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"400": map[string]any{"description": "参数错误"},
						"404": map[string]any{"description": "汉字未收录"},
					},
				},
			},
			"/api/v1/progress/update": map[string]any{
				"post": map[string]any{
					"summary":     "低层进度写入，starsEarned 按给定值覆盖",
					"operationId": "updateProgress",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/UpdateProgressRequest"},
							},
						},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", "#/components/schemas/LearningProgress"),
						"400": map[string]any{"description": "参数错误"},
					},
				},
			},
			"/api/v1/stars": map[string]any{
				"get": map[string]any{
					"summary":     "累计星星总数",
					"operationId": "totalStars",
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
					},
				},
			},
			"/api/v1/assets": map[string]any{
				"post": map[string]any{
					"summary":     "上传素材并返回公网地址",
					"operationId": "uploadAsset",
					"parameters": []map[string]any{
						{"name": "filename", "in": "query", "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]any{
						"200": jsonOK("成功", ""),
						"400": map[string]any{"description": "缺少素材内容"},
						"503": map[string]any{"description": "未配置素材上传能力"},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"HanziCharacter": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":            map[string]string{"type": "string"},
						"character":     map[string]string{"type": "string"},
						"pinyin":        map[string]string{"type": "string"},
						"meaning":       map[string]string{"type": "string"},
						"emoji":         map[string]string{"type": "string"},
						"theme":         map[string]string{"type": "string"},
						"category":      map[string]string{"type": "string"},
						"learningStage": map[string]string{"type": "string"},
					},
				},
				"LearningProgress": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"characterId": map[string]string{"type": "string"},
						"completed":   map[string]string{"type": "boolean"},
						"completedAt": map[string]string{"type": "string", "format": "date-time"},
						"lastLearned": map[string]string{"type": "string", "format": "date-time"},
						"starsEarned": map[string]string{"type": "integer"},
					},
				},
				"CategoryProgress": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category_name":      map[string]string{"type": "string"},
						"total_count":        map[string]string{"type": "integer"},
						"learned_count":      map[string]string{"type": "integer"},
						"learned_characters": map[string]any{"type": "array", "items": map[string]string{"type": "string"}},
					},
				},
				"CompleteLearningRequest": map[string]any{
					"type":     "object",
					"required": []string{"character_id"},
					"properties": map[string]any{
						"character_id": map[string]string{"type": "string"},
						"stars_earned": map[string]string{"type": "integer"},
					},
				},
				"UpdateProgressRequest": map[string]any{
					"type":     "object",
					"required": []string{"character_id"},
					"properties": map[string]any{
						"character_id": map[string]string{"type": "string"},
						"completed":    map[string]string{"type": "boolean"},
						"stars_earned": map[string]string{"type": "integer"},
						"last_learned": map[string]string{"type": "string", "format": "date-time"},
					},
				},
			},
		},
	}
}
