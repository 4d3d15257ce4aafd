package bridge

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Metrics holds the bridge's sync counters. They are exposed on /metrics in
// Prometheus text exposition format.
type Metrics struct {
	UsersSynced         atomic.Uint64
	GroupsSynced        atomic.Uint64
	DomainAdminsCreated atomic.Uint64
	DomainAdminsDeleted atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) WritePrometheus(w io.Writer) {
	counters := []struct {
		name  string
		value uint64
	}{
		{"users_synced_total", m.UsersSynced.Load()},
		{"groups_synced_total", m.GroupsSynced.Load()},
		{"domain_admins_created_total", m.DomainAdminsCreated.Load()},
		{"domain_admins_deleted_total", m.DomainAdminsDeleted.Load()},
	}
	for _, c := range counters {
		_, _ = fmt.Fprintf(w, "# HELP %s SCIM bridge metric\n", c.name)
		_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		_, _ = fmt.Fprintf(w, "%s %d\n", c.name, c.value)
	}
}
