package utils

import (
	"sync"
	"time"
)

// CardOperation представляет тип операции с картой для метрик
type CardOperation string

const (
	OpCardCreate   CardOperation = "create"
	OpCardBlock    CardOperation = "block"
	OpCardStatus   CardOperation = "status"
	OpCardBalance  CardOperation = "balance"
	OpCardDelete   CardOperation = "delete"
	OpCardTransfer CardOperation = "transfer"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики карт
	CardsCreated       int64
	CardsBlocked       int64
	CardsDeleted       int64
	StatusChanges      int64
	BalanceSets        int64
	TransfersSucceeded int64
	TransfersFailed    int64
	LastCardOperation  time.Time

	// Метрики конкурентного доступа
	TransferConflicts int64
	StoreTimeouts     int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{ErrorTypes: make(map[string]int64)}
}

// GetMetrics возвращает общий экземпляр метрик процесса
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики HTTP-запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()
	if failed {
		m.FailedRequests++
	}
}

// RecordCardOperation записывает результат операции с картой
func (m *Metrics) RecordCardOperation(op CardOperation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCardOperation = time.Now()
	if err != nil {
		if op == OpCardTransfer {
			m.TransfersFailed++
		}
		m.recordErrorLocked(err)
		return
	}

	switch op {
	case OpCardCreate:
		m.CardsCreated++
	case OpCardBlock:
		m.CardsBlocked++
	case OpCardStatus:
		m.StatusChanges++
	case OpCardBalance:
		m.BalanceSets++
	case OpCardDelete:
		m.CardsDeleted++
	case OpCardTransfer:
		m.TransfersSucceeded++
	}
}

// RecordConflict учитывает конфликт оптимистичной блокировки
func (m *Metrics) RecordConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransferConflicts++
}

// RecordStoreTimeout учитывает превышение таймаута хранилища
func (m *Metrics) RecordStoreTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreTimeouts++
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrorLocked(err)
}

func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":      m.TotalRequests,
		"failed_requests":     m.FailedRequests,
		"average_latency":     m.AverageLatency.String(),
		"cards_created":       m.CardsCreated,
		"cards_blocked":       m.CardsBlocked,
		"cards_deleted":       m.CardsDeleted,
		"status_changes":      m.StatusChanges,
		"balance_sets":        m.BalanceSets,
		"transfers_succeeded": m.TransfersSucceeded,
		"transfers_failed":    m.TransfersFailed,
		"transfer_conflicts":  m.TransferConflicts,
		"store_timeouts":      m.StoreTimeouts,
		"error_count":         m.ErrorCount,
		"last_error_time":     m.LastErrorTime,
		"error_types":         errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.CardsCreated = 0
	m.CardsBlocked = 0
	m.CardsDeleted = 0
	m.StatusChanges = 0
	m.BalanceSets = 0
	m.TransfersSucceeded = 0
	m.TransfersFailed = 0
	m.TransferConflicts = 0
	m.StoreTimeouts = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
