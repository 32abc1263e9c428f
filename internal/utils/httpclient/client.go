package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CricketSync/internal/config"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// maxDownloadSize 单次下载上限，完整的 IPL 数据包约 30MB
const maxDownloadSize = 512 << 20

const userAgent = "cricketsync/1.0"

// NewHTTPClient 下载数据包用的客户端：可选代理，整体超时取 cfg.Timeout 秒
func NewHTTPClient(cfg *config.DatasetConfig, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		// 自行协商 gzip，Download 负责解压
		DisableCompression: true,
	}
	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", proxyURL.Host).Info("下载客户端已配置代理")
		}
	}
	return &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second, Transport: transport}
}

// Download GET rawURL 并读出完整响应体（gzip 编码时解压），非 2xx 视为失败
func Download(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构建下载请求失败: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载失败: %w, url: %s", err, rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("下载失败: HTTP %d, url: %s", resp.StatusCode, rawURL)
	}

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w, url: %s", err, rawURL)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w, url: %s", err, rawURL)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("下载内容超过%d字节, url: %s", maxDownloadSize, rawURL)
	}
	return data, nil
}
