package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	systemCPUUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "Current CPU usage percentage",
		},
		[]string{"service"},
	)

	systemMemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_bytes",
			Help: "Current memory usage in bytes",
		},
		[]string{"service", "type"},
	)

	goMemstatsAllocBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "go_memstats_alloc_bytes_service",
			Help: "Number of bytes allocated and still in use",
		},
		[]string{"service"},
	)

	goGoroutines = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "go_goroutines_service",
			Help: "Number of goroutines that currently exist",
		},
		[]string{"service"},
	)
)

// UpdateSystemMetrics refreshes host and Go runtime metrics with a service label
func UpdateSystemMetrics(serviceName string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	goMemstatsAllocBytes.WithLabelValues(serviceName).Set(float64(m.Alloc))
	goGoroutines.WithLabelValues(serviceName).Set(float64(runtime.NumGoroutine()))

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		systemCPUUsage.WithLabelValues(serviceName).Set(percents[0])
	} else if err != nil {
		log.Debug().Err(err).Msg("Failed to read CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		systemMemoryUsage.WithLabelValues(serviceName, "used").Set(float64(vm.Used))
		systemMemoryUsage.WithLabelValues(serviceName, "available").Set(float64(vm.Available))
	} else {
		log.Debug().Err(err).Msg("Failed to read memory usage")
	}
}

// StartSystemMetricsCollection starts a goroutine to collect system metrics
func StartSystemMetricsCollection(serviceName string) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			UpdateSystemMetrics(serviceName)
		}
	}()
}
