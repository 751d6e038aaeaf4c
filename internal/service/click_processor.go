package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/config"
	"github.com/SergeiKhy/multidomain-shortener/internal/metrics"
	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	clickWriteTimeout    = 5 * time.Second
)

// ClickProcessor записывает клики: в фоне через worker pool (async)
// или внутри запроса (sync)
type ClickProcessor interface {
	Start()
	Stop()
	RecordClick(ctx context.Context, event *models.ClickEvent) error
	QueueStats() QueueStats
}

type ClickProcessorConfig struct {
	Mode    string
	Workers int
	Buffer  int
}

// clickProcessor реализация процессора кликов с использованием Worker Pool
type clickProcessor struct {
	clickRepo    repository.ClickRepository
	logger       *zap.Logger
	async        bool
	clickChannel chan *models.ClickEvent // Канал для событий кликов
	workerCount  int                     // Количество воркеров
	wg           sync.WaitGroup          // WaitGroup для ожидания завершения воркеров

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(clickRepo repository.ClickRepository, cfg ClickProcessorConfig, logger *zap.Logger) ClickProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultChannelBuffer
	}

	p := &clickProcessor{
		clickRepo:   clickRepo,
		logger:      logger,
		async:       cfg.Mode != config.ClickModeSync,
		workerCount: cfg.Workers,
	}
	if p.async {
		p.clickChannel = make(chan *models.ClickEvent, cfg.Buffer)
	}
	return p
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	if !p.async {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop закрывает канал и ждёт, пока воркеры запишут оставшиеся события
func (p *clickProcessor) Stop() {
	if !p.async {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.clickChannel)
	started := p.started
	p.mu.Unlock()

	p.logger.Info("Остановка процессора кликов...", zap.Int("pending", len(p.clickChannel)))

	if !started {
		// Воркеры не запускались, дописываем буфер сами
		for event := range p.clickChannel {
			p.handle(event)
		}
	}

	p.wg.Wait()
	metrics.ClickQueueDepth.Set(0)
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала до его закрытия
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for event := range p.clickChannel {
		metrics.ClickQueueDepth.Set(float64(len(p.clickChannel)))
		p.handle(event)
	}

	p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
}

func (p *clickProcessor) handle(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), clickWriteTimeout)
	defer cancel()

	if err := p.processClick(ctx, event); err != nil {
		p.logger.Error("Не удалось записать клик",
			zap.Int64("short_url_id", event.ShortURLID),
			zap.Error(err),
		)
	}
}

// processClick пишет событие и счётчик одной транзакцией
func (p *clickProcessor) processClick(ctx context.Context, event *models.ClickEvent) error {
	recorded, err := withRetry(ctx, p.logger, "record_click", func(ctx context.Context) (bool, error) {
		return p.clickRepo.RecordClick(ctx, event)
	})
	if err != nil {
		metrics.ClickEvents.WithLabelValues("failed").Inc()
		return err
	}

	if !recorded {
		// Ссылку отключили или срок истёк между чтением и записью
		metrics.ClickEvents.WithLabelValues("skipped").Inc()
		p.logger.Debug("Клик пропущен, ссылка больше не активна", zap.Int64("short_url_id", event.ShortURLID))
		return nil
	}

	metrics.ClickEvents.WithLabelValues("recorded").Inc()
	return nil
}

// RecordClick в async режиме ставит событие в очередь без блокировки,
// в sync режиме пишет его сразу
func (p *clickProcessor) RecordClick(ctx context.Context, event *models.ClickEvent) error {
	if !p.async {
		ctx, cancel := context.WithTimeout(ctx, clickWriteTimeout)
		defer cancel()
		return p.processClick(ctx, event)
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		// После остановки пула пишем синхронно, чтобы не терять событие
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clickWriteTimeout)
		defer cancel()
		return p.processClick(ctx, event)
	}
	defer p.mu.RUnlock()

	select {
	case p.clickChannel <- event:
		metrics.ClickQueueDepth.Set(float64(len(p.clickChannel)))
		return nil
	default:
		// Канал заполнен, логируем предупреждение, но не блокируем запрос
		metrics.ClickEventsDropped.Inc()
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.Int64("short_url_id", event.ShortURLID),
		)
		return nil
	}
}

// QueueStats возвращает статистику канала для мониторинга
func (p *clickProcessor) QueueStats() QueueStats {
	mode := config.ClickModeSync
	if p.async {
		mode = config.ClickModeAsync
	}
	return QueueStats{
		Mode:        mode,
		BufferSize:  cap(p.clickChannel),
		BufferUsed:  len(p.clickChannel),
		WorkerCount: p.workerCount,
	}
}

// QueueStats статистика канала worker pool
type QueueStats struct {
	Mode        string `json:"mode"`
	BufferSize  int    `json:"buffer_size"`  // Общая ёмкость канала
	BufferUsed  int    `json:"buffer_used"`  // Текущее использование
	WorkerCount int    `json:"worker_count"` // Количество воркеров
}
