package callback

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"nutrition-advisor/internal/core/metrics"
	"nutrition-advisor/internal/core/nutrition"
	"nutrition-advisor/internal/infrastructure/config"
	"nutrition-advisor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DeliveryIDHeader 每次投遞的唯一識別
const DeliveryIDHeader = "X-Delivery-ID"

// ErrClosed 派送器已關閉
var ErrClosed = errors.New("callback dispatcher is closed")

// Payload 回呼內容
type Payload struct {
	ProductID          string                       `json:"product_id"`
	Barcode            string                       `json:"barcode"`
	Recommendation     string                       `json:"recommendation"`
	RecommendationType nutrition.RecommendationType `json:"recommendation_type"`
	Timestamp          string                       `json:"timestamp"`
}

// Task 待投遞的回呼
type Task struct {
	URL        string
	DeliveryID string
	Payload    Payload
}

// Status 派送器狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
	ProcessedCount int64 `json:"processed_count"`
}

// Dispatcher 背景回呼派送器：固定數量的 worker 從有界佇列取出任務，每個任務只嘗試一次
type Dispatcher struct {
	client    *resty.Client
	queue     chan *Task
	workers   int
	timeout   time.Duration
	now       func() time.Time
	processed int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher 創建派送器並啟動 worker
func NewDispatcher(cfg config.CallbackConfig) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		queue:   make(chan *Task, size),
		workers: workers,
		timeout: timeout,
		now:     time.Now,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	common.LogInfo("Callback dispatcher started",
		zap.Int("workers", workers),
		zap.Int("queue_size", size),
		zap.Duration("timeout", timeout),
	)
	return d
}

// Submit 建立回呼任務並放入佇列，不會阻塞；佇列滿或網址無效時丟棄並記錄
func (d *Dispatcher) Submit(callbackURL string, verdict nutrition.Verdict, product nutrition.ProductRecord) error {
	if err := validateURL(callbackURL); err != nil {
		metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		common.LogWarn("Callback dropped: invalid URL",
			zap.String("callback_url", callbackURL),
			zap.Error(err),
		)
		return err
	}

	task := &Task{
		URL:        callbackURL,
		DeliveryID: common.GenerateUUID(),
		Payload: Payload{
			ProductID:          product.ID,
			Barcode:            product.Barcode,
			Recommendation:     verdict.Text,
			RecommendationType: verdict.Type,
			Timestamp:          d.now().UTC().Format(time.RFC3339),
		},
	}
	return d.enqueue(task)
}

func (d *Dispatcher) enqueue(task *Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return ErrClosed
	}

	select {
	case d.queue <- task:
		common.LogDebug("Callback enqueued",
			zap.String("delivery_id", task.DeliveryID),
			zap.Int("queue_length", len(d.queue)),
		)
		return nil
	default:
		metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		common.LogWarn("Callback dropped: queue is full",
			zap.String("delivery_id", task.DeliveryID),
			zap.Int("max_queue_size", cap(d.queue)),
		)
		return fmt.Errorf("callback queue is full")
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for task := range d.queue {
		d.deliver(task, id)
		atomic.AddInt64(&d.processed, 1)
	}
}

// deliver 單次 POST，結果只記錄不重試
func (d *Dispatcher) deliver(task *Task, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader(DeliveryIDHeader, task.DeliveryID).
		SetBody(task.Payload).
		Post(task.URL)

	fields := []zap.Field{
		zap.String("delivery_id", task.DeliveryID),
		zap.String("callback_url", task.URL),
		zap.Int("worker", workerID),
		zap.Duration("duration", time.Since(start)),
	}

	if err != nil {
		metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		common.LogWarn("Callback delivery failed", append(fields, zap.Error(err))...)
		return
	}
	if resp.IsError() {
		metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		common.LogWarn("Callback delivery rejected", append(fields, zap.Int("status", resp.StatusCode()))...)
		return
	}

	metrics.CallbacksTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
	common.LogInfo("Callback delivered", append(fields, zap.Int("status", resp.StatusCode()))...)
}

// Status 返回目前佇列狀態
func (d *Dispatcher) Status() *Status {
	return &Status{
		QueueLength:    len(d.queue),
		MaxQueueSize:   cap(d.queue),
		Workers:        d.workers,
		ProcessedCount: atomic.LoadInt64(&d.processed),
	}
}

// Close 停止接收新任務並等待佇列清空，ctx 逾時則直接返回
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		common.LogInfo("Callback dispatcher stopped",
			zap.Int64("processed_count", atomic.LoadInt64(&d.processed)),
		)
		return nil
	case <-ctx.Done():
		common.LogWarn("Callback dispatcher stop timed out",
			zap.Int("pending", len(d.queue)),
		)
		return ctx.Err()
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported callback scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("callback URL has no host")
	}
	return nil
}
