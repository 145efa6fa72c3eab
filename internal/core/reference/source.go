package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nutrition-advisor/internal/core/metrics"
	"nutrition-advisor/internal/core/reference/cache"
	"nutrition-advisor/internal/infrastructure/config"
	"nutrition-advisor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// maxDescriptionRunes 單一說明的最大長度
const maxDescriptionRunes = 300

var additiveCodePattern = regexp.MustCompile(`(?i)\bE\s?-?(\d{3,4}[a-z]?)\b`)

// errNotFound 參考網站沒有此添加物
var errNotFound = errors.New("additive not found")

// Source 從公開的添加物資料網站取得說明，失敗時安靜略過
type Source struct {
	client      *resty.Client
	store       cache.Store
	maxItems    int
	concurrency int
}

// NewSource 創建參考資料來源，store 可為 nil
func NewSource(cfg config.ReferenceConfig, store cache.Store) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 5
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "text/html").
		SetHeader("User-Agent", "nutrition-advisor/1.0")

	return &Source{
		client:      client,
		store:       store,
		maxItems:    maxItems,
		concurrency: concurrency,
	}
}

// Lookup 查詢添加物說明，回傳每行 "CODE: 說明" 的文字；沒有任何結果時為空字串
func (s *Source) Lookup(ctx context.Context, additives []string) string {
	codes := ExtractCodes(additives, s.maxItems)
	if len(codes) == 0 {
		return ""
	}

	descriptions := make([]string, len(codes))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for idx, code := range codes {
		idx, code := idx, code
		g.Go(func() error {
			desc, err := s.describe(gCtx, code)
			if err != nil {
				if !errors.Is(err, errNotFound) {
					common.LogWarn("Additive reference lookup failed",
						zap.String("code", code),
						zap.Error(err),
					)
				}
				return nil
			}
			descriptions[idx] = desc
			return nil
		})
	}
	_ = g.Wait()

	lines := make([]string, 0, len(codes))
	for idx, code := range codes {
		if descriptions[idx] != "" {
			lines = append(lines, code+": "+descriptions[idx])
		}
	}
	return strings.Join(lines, "\n")
}

func (s *Source) describe(ctx context.Context, code string) (string, error) {
	if s.store != nil {
		if desc, err := s.store.Get(ctx, code); err == nil {
			metrics.ReferenceLookupsTotal.WithLabelValues(metrics.LookupHit).Inc()
			return desc, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			common.LogWarn("Reference cache read failed", zap.String("code", code), zap.Error(err))
		}
	}

	desc, err := s.fetch(ctx, code)
	switch {
	case errors.Is(err, errNotFound):
		metrics.ReferenceLookupsTotal.WithLabelValues(metrics.LookupMiss).Inc()
		return "", err
	case err != nil:
		metrics.ReferenceLookupsTotal.WithLabelValues(metrics.LookupError).Inc()
		return "", err
	}
	metrics.ReferenceLookupsTotal.WithLabelValues(metrics.LookupFetch).Inc()

	if s.store != nil {
		if err := s.store.Set(ctx, code, desc); err != nil {
			common.LogWarn("Reference cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return desc, nil
}

func (s *Source) fetch(ctx context.Context, code string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/" + strings.ToLower(code))
	if err != nil {
		return "", fmt.Errorf("failed to fetch additive page: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", errNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("additive page returned status %d", resp.StatusCode())
	}

	desc, err := ExtractDescription(resp.Body())
	if err != nil {
		return "", err
	}
	if desc == "" {
		return "", errNotFound
	}
	return desc, nil
}

// ExtractCodes 從添加物清單取出 E 編號（大寫、去重、保留順序）
func ExtractCodes(additives []string, limit int) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0, len(additives))
	for _, additive := range additives {
		for _, m := range additiveCodePattern.FindAllStringSubmatch(additive, -1) {
			code := "E" + strings.ToUpper(m[1])
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
			if limit > 0 && len(codes) == limit {
				return codes
			}
		}
	}
	return codes
}

// ExtractDescription 取 meta description，沒有時取第一個非空段落
func ExtractDescription(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse additive page: %w", err)
	}

	var metaDesc, firstParagraph string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if metaDesc != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if strings.EqualFold(attr(n, "name"), "description") {
					metaDesc = strings.TrimSpace(attr(n, "content"))
				}
			case "p":
				if firstParagraph == "" {
					firstParagraph = strings.TrimSpace(textContent(n))
				}
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	desc := metaDesc
	if desc == "" {
		desc = firstParagraph
	}
	desc = common.NormalizeText(strings.Join(strings.Fields(desc), " "))
	return truncate(desc, maxDescriptionRunes), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func truncate(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}
