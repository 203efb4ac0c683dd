package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"swingtrader/config"
	"swingtrader/logger"
)

// Fetcher 日线数据下载器
// 免费日线服务对请求频率敏感，内置限速器避免被封
type Fetcher struct {
	baseURL  string
	cacheDir string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewFetcher 创建下载器
func NewFetcher(cfg *config.MarketDataConfig) *Fetcher {
	return &Fetcher{
		baseURL:  cfg.BaseURL,
		cacheDir: cfg.CacheDir,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// GetHistory 获取一组标的的日线历史（优先本地缓存）
func (f *Fetcher) GetHistory(tickers []string, start, end time.Time) (History, error) {
	history := make(History)

	for _, ticker := range tickers {
		bars, err := f.getTickerHistory(ticker, start, end)
		if err != nil {
			// 单个标的失败不中断整体下载，当天没有数据而已
			logger.Warn("⚠️ 获取 %s 数据失败: %v", ticker, err)
			continue
		}
		if len(bars) == 0 {
			logger.Warn("⚠️ %s 在区间内没有数据", ticker)
			continue
		}
		history[ticker] = bars
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("没有获取到任何标的的历史数据")
	}

	logger.Info("✅ 历史数据就绪: %d/%d 个标的", len(history), len(tickers))
	return history, nil
}

// getTickerHistory 获取单个标的的日线（缓存 -> HTTP）
func (f *Fetcher) getTickerHistory(ticker string, start, end time.Time) ([]Bar, error) {
	cacheKey := fmt.Sprintf("%s_%s_%s",
		strings.ToUpper(ticker),
		start.Format("20060102"),
		end.Format("20060102"),
	)

	if bars, err := f.loadFromCache(cacheKey, ticker); err == nil {
		logger.Debug("✅ 从缓存加载: %s (%d 根日线)", cacheKey, len(bars))
		return bars, nil
	}

	logger.Info("⬇️ 下载日线: %s (%s 至 %s)", ticker,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	bars, err := f.fetchRemote(ticker, start, end)
	if err != nil {
		return nil, err
	}

	if err := f.saveToCache(cacheKey, bars); err != nil {
		logger.Warn("⚠️ 缓存保存失败: %v", err)
	}

	return bars, nil
}

// fetchRemote 从远端服务下载 CSV 日线
func (f *Fetcher) fetchRemote(ticker string, start, end time.Time) ([]Bar, error) {
	// 限速等待
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("限速等待失败: %w", err)
	}

	q := url.Values{}
	q.Set("s", strings.ToLower(ticker))
	q.Set("d1", start.Format("20060102"))
	q.Set("d2", end.Format("20060102"))
	q.Set("i", "d") // 日线

	reqURL := f.baseURL + "?" + q.Encode()
	resp, err := f.client.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("服务返回状态码 %d", resp.StatusCode)
	}

	return parseCSVBars(resp.Body, ticker)
}

// parseCSVBars 解析日线 CSV（表头: Date,Open,High,Low,Close,Volume）
func parseCSVBars(r io.Reader, ticker string) ([]Bar, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析CSV失败: %w", err)
	}

	if len(records) < 2 {
		return nil, nil
	}

	bars := make([]Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			logger.Debug("跳过无法解析的日期行 %d: %v", i+1, err)
			continue
		}

		open, err1 := strconv.ParseFloat(rec[1], 64)
		high, err2 := strconv.ParseFloat(rec[2], 64)
		low, err3 := strconv.ParseFloat(rec[3], 64)
		closePrice, err4 := strconv.ParseFloat(rec[4], 64)
		volume, err5 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}

		bars = append(bars, Bar{
			Ticker: strings.ToUpper(ticker),
			Date:   Day(date),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars, nil
}

// loadFromCache 从本地 CSV 缓存加载
func (f *Fetcher) loadFromCache(cacheKey, ticker string) ([]Bar, error) {
	filename := filepath.Join(f.cacheDir, cacheKey+".csv")
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	bars, err := parseCSVBars(file, ticker)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("缓存文件为空")
	}
	return bars, nil
}

// saveToCache 写入本地 CSV 缓存
func (f *Fetcher) saveToCache(cacheKey string, bars []Bar) error {
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return fmt.Errorf("创建缓存目录失败: %w", err)
	}

	filename := filepath.Join(f.cacheDir, cacheKey+".csv")
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("创建缓存文件失败: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Date.Format("2006-01-02"),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	return nil
}

// ClearCache 清理全部本地缓存
func (f *Fetcher) ClearCache() error {
	if err := os.RemoveAll(f.cacheDir); err != nil {
		return fmt.Errorf("清理缓存失败: %w", err)
	}
	return nil
}
