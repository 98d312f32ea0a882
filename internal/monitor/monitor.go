// Package monitor keeps the audit trail of tool calls: a bounded in-memory
// window of recent calls backed by the tool_call_logs table.
package monitor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"gorm.io/gorm"
)

const (
	// MaxErrorSize limits the stored error text to 4KB
	MaxErrorSize = 4 * 1024
	// MaxMemoryLogs limits the in-memory window
	MaxMemoryLogs = 100
	// DefaultLimit is the page size when a query names none
	DefaultLimit = 100
)

// CallMonitor records tool calls. Writes to the database happen off the
// calling goroutine; Flush waits for them.
type CallMonitor struct {
	db *gorm.DB

	recentLogs []models.ToolCallLog
	logsMu     sync.RWMutex
	pending    sync.WaitGroup

	total  atomic.Int64
	ok     atomic.Int64
	errors atomic.Int64
	denied atomic.Int64
}

// NewCallMonitor seeds its counters from the rows already stored.
func NewCallMonitor(db *gorm.DB) *CallMonitor {
	m := &CallMonitor{
		db:         db,
		recentLogs: make([]models.ToolCallLog, 0, MaxMemoryLogs),
	}
	m.loadStatsFromDB()
	return m
}

// Record stores one call (async, non-blocking).
func (m *CallMonitor) Record(entry models.ToolCallLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}
	if len(entry.Error) > MaxErrorSize {
		entry.Error = entry.Error[:MaxErrorSize] + "...[truncated]"
	}

	m.total.Add(1)
	switch entry.Outcome {
	case metrics.OutcomeOK:
		m.ok.Add(1)
	case metrics.OutcomeDenied:
		m.denied.Add(1)
	default:
		m.errors.Add(1)
	}

	m.logsMu.Lock()
	m.recentLogs = append([]models.ToolCallLog{entry}, m.recentLogs...)
	if len(m.recentLogs) > MaxMemoryLogs {
		m.recentLogs = m.recentLogs[:MaxMemoryLogs]
	}
	m.logsMu.Unlock()

	m.pending.Add(1)
	go func(entry models.ToolCallLog) {
		defer m.pending.Done()
		if err := m.db.Create(&entry).Error; err != nil {
			log.Printf("[Monitor] Failed to save tool call %s: %v", entry.ID, err)
		}
	}(entry)
}

// Flush blocks until every recorded call has been written.
func (m *CallMonitor) Flush() {
	m.pending.Wait()
}

// Query filters stored calls. Zero fields do not filter.
type Query struct {
	Limit        int
	SinceMinutes int
	Tool         string
	UserID       string
	Outcome      string
}

// Logs returns stored calls newest first. When the database cannot be read
// the in-memory window is served instead.
func (m *CallMonitor) Logs(ctx context.Context, q Query) []models.ToolCallLog {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	query := m.db.WithContext(ctx).Order("timestamp DESC").Limit(q.Limit)
	if q.SinceMinutes > 0 {
		since := time.Now().Add(-time.Duration(q.SinceMinutes) * time.Minute).UnixMilli()
		query = query.Where("timestamp >= ?", since)
	}
	if q.Tool != "" {
		query = query.Where("tool = ?", q.Tool)
	}
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.Outcome != "" {
		query = query.Where("outcome = ?", q.Outcome)
	}

	logs := []models.ToolCallLog{}
	if err := query.Find(&logs).Error; err != nil {
		log.Printf("[Monitor] Failed to read tool calls, serving memory window: %v", err)
		return m.recent(q)
	}
	return logs
}

func (m *CallMonitor) recent(q Query) []models.ToolCallLog {
	var since int64
	if q.SinceMinutes > 0 {
		since = time.Now().Add(-time.Duration(q.SinceMinutes) * time.Minute).UnixMilli()
	}

	m.logsMu.RLock()
	defer m.logsMu.RUnlock()
	out := []models.ToolCallLog{}
	for _, e := range m.recentLogs {
		if len(out) == q.Limit {
			break
		}
		if e.Timestamp < since ||
			(q.Tool != "" && e.Tool != q.Tool) ||
			(q.UserID != "" && e.UserID != q.UserID) ||
			(q.Outcome != "" && e.Outcome != q.Outcome) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Stats returns the call counts since the table was created.
func (m *CallMonitor) Stats() models.ToolCallStats {
	return models.ToolCallStats{
		Total:  m.total.Load(),
		OK:     m.ok.Load(),
		Errors: m.errors.Load(),
		Denied: m.denied.Load(),
	}
}

func (m *CallMonitor) loadStatsFromDB() {
	var total, ok, denied int64
	m.db.Model(&models.ToolCallLog{}).Count(&total)
	m.db.Model(&models.ToolCallLog{}).Where("outcome = ?", metrics.OutcomeOK).Count(&ok)
	m.db.Model(&models.ToolCallLog{}).Where("outcome = ?", metrics.OutcomeDenied).Count(&denied)

	m.total.Store(total)
	m.ok.Store(ok)
	m.denied.Store(denied)
	m.errors.Store(total - ok - denied)

	if total > 0 {
		log.Printf("[Monitor] Loaded stats: total=%d, ok=%d, denied=%d", total, ok, denied)
	}
}
