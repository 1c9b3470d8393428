package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"hanzibee/internal/assets"
	"hanzibee/internal/dataset"
	"hanzibee/internal/httpapi"
	"hanzibee/internal/loader"
	"hanzibee/internal/progress"
	"hanzibee/internal/service"
	"hanzibee/internal/store"
)

func main() {
	if err := loadConfigFile("hanzibee.ini"); err != nil {
		log.Printf("load hanzibee.ini failed: %v", err)
	}
	// Backward compatibility: still accept .env when present.
	if err := loadConfigFile(".env"); err != nil {
		log.Printf("load .env failed: %v", err)
	}

	addr := resolveListenAddr()
	storeEngine := strings.ToLower(envOrDefault("HANZIBEE_STORE", store.EngineSQLite))
	dataFile := envOrDefault("HANZIBEE_DATA_FILE", defaultDataFile(storeEngine))

	st, err := store.NewByEngine(storeEngine, dataFile)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	if closer, ok := st.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("store close failed: %v", err)
			}
		}()
	}

	datasetHandler, selfHosted := resolveDatasetHandler()
	baseURL := strings.TrimSpace(envOrDefault("HANZIBEE_DATA_BASE_URL", ""))
	if baseURL == "" {
		baseURL = selfBaseURL(addr) + "/data/configs"
		log.Printf("dataset base url not set, serving dataset from %s", baseURL)
	}
	if selfHosted {
		log.Printf("dataset mounted at /data/configs")
	}

	httpClient := &http.Client{Timeout: time.Duration(parseEnvInt("HANZIBEE_HTTP_TIMEOUT_SECONDS", 15)) * time.Second}
	ld := loader.New(baseURL, httpClient)
	tracker := progress.New(st, baseURL, httpClient)
	svc := service.New(ld, tracker)

	if uploader := initUploaderFromEnv(); uploader != nil {
		svc.SetUploader(uploader)
		log.Printf("asset upload enabled")
	} else {
		log.Printf("asset upload disabled, /api/v1/assets will return 503")
	}

	handler := httpapi.NewHandler(svc)
	router := httpapi.NewRouter(handler, datasetHandler)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("hanzi bee backend listening on %s (store=%s)", addr, storeEngine)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// resolveDatasetHandler 决定 /data/configs/ 挂什么：数据目录就位则挂目录，
// 否则回退到内置示例字库，保证零配置也能启动。
func resolveDatasetHandler() (http.Handler, bool) {
	dir := strings.TrimSpace(envOrDefault("HANZIBEE_DATASET_DIR", "data/configs"))
	if dataset.DirExists(dir) {
		log.Printf("serving dataset from directory %s", dir)
		return dataset.DirHandler(dir), true
	}
	log.Printf("dataset directory %s not found, using built-in sample dataset", dir)
	return dataset.SampleHandler(), true
}

func resolveListenAddr() string {
	defaultHost, defaultPort := parseListenAddr(envOrDefault("HANZIBEE_ADDR", ":8080"))
	if defaultPort <= 0 {
		defaultPort = 8080
	}

	defaultHost = strings.TrimSpace(envOrDefault("HANZIBEE_HOST", defaultHost))
	defaultPort = parseEnvInt("HANZIBEE_PORT", defaultPort)

	host := flag.String("host", defaultHost, "server listen host, e.g. 0.0.0.0")
	port := flag.Int("port", defaultPort, "server listen port, e.g. 8080")
	flag.Parse()

	return joinListenAddr(strings.TrimSpace(*host), *port)
}

func parseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", parseEnvIntValue(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, parseEnvIntValue(port, 0)
	}
	if portOnly := parseEnvIntValue(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func joinListenAddr(host string, port int) string {
	if port <= 0 {
		port = 8080
	}
	if host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// selfBaseURL 由监听地址推导回源地址，裸端口监听按回环地址处理。
func selfBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func defaultDataFile(storeEngine string) string {
	switch storeEngine {
	case store.EngineJSON:
		return "data/hanzibee.json"
	case store.EngineGData:
		return "hanzibee"
	default:
		return "data/hanzibee.db"
	}
}

func initUploaderFromEnv() *assets.Uploader {
	uploader, err := assets.New(assets.Config{
		SecretID:     os.Getenv("HANZIBEE_COS_SECRET_ID"),
		SecretKey:    os.Getenv("HANZIBEE_COS_SECRET_KEY"),
		Region:       envOrDefault("HANZIBEE_COS_REGION", "ap-hongkong"),
		BucketName:   os.Getenv("HANZIBEE_COS_BUCKET_NAME"),
		PublicDomain: envOrDefault("HANZIBEE_COS_PUBLIC_DOMAIN", ""),
	})
	if err != nil {
		return nil
	}
	return uploader
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return parseEnvIntValue(raw, fallback)
}

func parseEnvIntValue(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func loadConfigFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		sep := strings.Index(line, "=")
		if sep <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:sep])
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		value := strings.TrimSpace(line[sep+1:])
		value = strings.Trim(value, "\"'")
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
