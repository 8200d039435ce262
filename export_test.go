package connpool

import "github.com/yuku/connpool/internal/metrics"

var (
	MySQLDSN    = func(cfg *Config) string { return mysqlConfig(cfg.withDefaults()).FormatDSN() }
	PostgresDSN = func(cfg *Config) string { return postgresDSN(cfg.withDefaults()) }
)

// HasPool reports whether the Manager currently holds an open pool.
func (m *Manager) HasPool() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil
}

func (m *Manager) Metrics() *metrics.Pool {
	return m.metrics
}
