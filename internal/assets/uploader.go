// Package assets 把发音音频、字形插图等素材发布到腾讯云 COS，
// 返回可供前端与 PWA 缓存层直接访问的公网地址。
package assets

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

var ErrUploadUnavailable = errors.New("未配置素材上传能力")

var fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Config struct {
	SecretID     string
	SecretKey    string
	Region       string
	BucketName   string
	PublicDomain string
}

type Uploader struct {
	cfg Config
}

// New 创建素材上传器。凭据或桶配置不全时返回 ErrUploadUnavailable，
// 调用方按未配置处理（与大模型能力的空值约定一致）。
func New(cfg Config) (*Uploader, error) {
	if strings.TrimSpace(cfg.SecretID) == "" ||
		strings.TrimSpace(cfg.SecretKey) == "" ||
		strings.TrimSpace(cfg.BucketName) == "" ||
		strings.TrimSpace(cfg.PublicDomain) == "" {
		return nil, ErrUploadUnavailable
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "ap-hongkong"
	}
	return &Uploader{cfg: cfg}, nil
}

// Upload 上传素材字节并返回公网地址。
func (u *Uploader) Upload(ctx context.Context, data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("asset bytes is empty")
	}

	bucketURL, err := url.Parse(fmt.Sprintf(
		"https://%s.cos.%s.myqcloud.com",
		strings.TrimSpace(u.cfg.BucketName),
		strings.TrimSpace(u.cfg.Region),
	))
	if err != nil {
		return "", err
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  strings.TrimSpace(u.cfg.SecretID),
			SecretKey: strings.TrimSpace(u.cfg.SecretKey),
		},
	})

	key := buildObjectKey(fileName)
	if _, err := client.Object.Put(ctx, key, bytes.NewReader(data), nil); err != nil {
		return "", err
	}

	publicDomain := strings.TrimRight(strings.TrimSpace(u.cfg.PublicDomain), "/")
	return publicDomain + "/" + key, nil
}

func buildObjectKey(fileName string) string {
	clean := sanitizeFileName(fileName)
	suffix := randomHex(4)
	return fmt.Sprintf("%d_%s_%s", time.Now().Unix(), suffix, clean)
}

func sanitizeFileName(fileName string) string {
	base := strings.TrimSpace(filepath.Base(fileName))
	if base == "" || base == "." || base == "/" {
		base = "asset.bin"
	}
	base = fileNamePattern.ReplaceAllString(base, "_")
	if base == "" {
		base = "asset.bin"
	}
	return base
}

func randomHex(bytesLen int) string {
	if bytesLen <= 0 {
		bytesLen = 4
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "r"
	}
	return hex.EncodeToString(buf)
}
