package gomon

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/eryajf/promwrite"
	"go.uber.org/zap"
)

// Config defines the configuration for the monitoring system.
type Config struct {
	// Service identification
	Namespace   string
	Subsystem   string
	ServiceName string

	// Remote write configuration
	RemoteWriteURL      string
	RemoteWriteInterval time.Duration

	// Instance information
	InstanceIP   string
	CustomLabels map[string]string

	// RuntimeInterval enables periodic Go runtime monitors on the
	// default factory when set. Only honored by Init.
	RuntimeInterval time.Duration

	// Optional logger
	Logger *zap.Logger

	// DNS resolver options for remote write client refresh
	DNS DNSConfig
}

// DNSConfig tunes the custom resolvers used to refresh the remote
// write client. All fields are optional.
type DNSConfig struct {
	Enable          bool
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	Timeout         time.Duration
	UDPServers      []string // e.g. ["1.1.1.1:53", "8.8.8.8:53"]
	TLSServers      []string // e.g. ["1.1.1.1:853", "9.9.9.9:853"]
	DoHEndpoints    []string // e.g. ["https://cloudflare-dns.com/dns-query"]
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	ip, _ := GetOutboundIPv4()
	return Config{
		Namespace:           "app",
		Subsystem:           "prod",
		ServiceName:         "service",
		RemoteWriteInterval: 15 * time.Second,
		InstanceIP:          ip,
		CustomLabels:        make(map[string]string),
	}
}

// Manager is the main interface for metrics collection and reporting.
type Manager interface {
	Start() error
	Stop()
	RegisterCollector(collector Collector)
	GetMetrics() []Metric
	Flush() error
}

// Collector defines a metrics collector that can provide multiple metrics.
type Collector interface {
	Collect() []Metric
	Name() string
}

// Metric represents a single metric data point.
type Metric struct {
	Name       string
	Value      float64
	Labels     map[string]string
	MetricType MetricType
	Timestamp  time.Time
}

// MetricType represents the type of a metric.
type MetricType int

const (
	Counter MetricType = iota
	Gauge
	Histogram
	Summary
)

// manager is the implementation of Manager.
type manager struct {
	config     Config
	collectors []Collector
	client     *promwrite.Client
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mutex      sync.RWMutex

	// DNS refresh state
	targetHost  string
	resolvedIPs []string
	lastResolve time.Time
	dns         dnsSettings
	dnsCache    map[string]dnsCacheEntry
}

// NewManager creates a new metrics manager.
func NewManager(config Config) (Manager, error) {
	if config.ServiceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}

	if config.InstanceIP == "" {
		ip, err := GetOutboundIPv4()
		if err != nil {
			return nil, fmt.Errorf("failed to get outbound IPv4: %w", err)
		}
		config.InstanceIP = ip
	}

	ctx, cancel := context.WithCancel(context.Background())

	var client *promwrite.Client
	if config.RemoteWriteURL != "" {
		client = promwrite.NewClient(config.RemoteWriteURL)
	}

	// Parse target host for DNS refresh
	var host string
	if config.RemoteWriteURL != "" {
		if u, err := url.Parse(config.RemoteWriteURL); err == nil {
			host = u.Hostname()
		}
	}

	mgr := &manager{
		config:     config,
		collectors: []Collector{},
		client:     client,
		ctx:        ctx,
		cancel:     cancel,
		targetHost: host,
		dns:        newDNSSettings(config.DNS),
		dnsCache:   make(map[string]dnsCacheEntry),
	}
	return mgr, nil
}

func pickDuration(v time.Duration, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// RegisterCollector implements the Manager interface.
func (m *manager) RegisterCollector(collector Collector) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.collectors = append(m.collectors, collector)

	if m.config.Logger != nil {
		m.config.Logger.Debug("Registered metrics collector",
			zap.String("collector", collector.Name()))
	}
}

// Start implements the Manager interface.
func (m *manager) Start() error {
	if m.client == nil && m.config.RemoteWriteURL != "" {
		m.client = promwrite.NewClient(m.config.RemoteWriteURL)
	}

	if m.client == nil {
		if m.config.Logger != nil {
			m.config.Logger.Warn("Starting metrics manager without remote write URL")
		}
		return nil
	}

	// Periodic write loop
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		interval := m.config.RemoteWriteInterval
		if interval <= 0 {
			interval = 15 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := m.writeMetrics(); err != nil {
					if m.config.Logger != nil {
						m.config.Logger.Error("Failed to write metrics", zap.Error(err))
					}
				}
			case <-m.ctx.Done():
				return
			}
		}
	}()

	// DNS refresh loop
	if m.dns.enabled && m.targetHost != "" && net.ParseIP(m.targetHost) == nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(m.dns.refreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.refreshDNS(false)
				case <-m.ctx.Done():
					return
				}
			}
		}()
	}

	return nil
}

// Stop implements the Manager interface.
func (m *manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// GetMetrics implements the Manager interface.
func (m *manager) GetMetrics() []Metric {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var metrics []Metric
	for _, collector := range m.collectors {
		metrics = append(metrics, collector.Collect()...)
	}

	return metrics
}

// Flush implements the Manager interface. It writes all current
// metrics to the remote endpoint immediately, which is useful for
// health checks and shutdown paths.
func (m *manager) Flush() error {
	return m.writeMetrics()
}

// writeMetrics sends collected metrics to the remote write endpoint.
func (m *manager) writeMetrics() error {
	if m.client == nil {
		return fmt.Errorf("no remote write client configured")
	}

	metrics := m.GetMetrics()
	if len(metrics) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(m.ctx, 15*time.Second)
	defer cancel()

	req := &promwrite.WriteRequest{
		TimeSeries: m.timeSeries(metrics),
	}

	_, err := m.client.Write(ctx, req)
	if err != nil {
		// On DNS-related failures, try a forced DNS refresh once
		if m.refreshDNS(true) {
			_, retryErr := m.client.Write(ctx, req)
			if retryErr == nil {
				return nil
			}
			return fmt.Errorf("writing time series failed after dns refresh: %w", retryErr)
		}
		return fmt.Errorf("writing time series failed: %w", err)
	}

	return nil
}

// timeSeries converts collected metrics to the promwrite format.
func (m *manager) timeSeries(metrics []Metric) []promwrite.TimeSeries {
	var result []promwrite.TimeSeries

	prefix := fmt.Sprintf("%s_%s", m.config.Namespace, m.config.Subsystem)

	for _, metric := range metrics {
		expectedCapacity := 4 + len(m.config.CustomLabels) + len(metric.Labels)

		labels := make([]promwrite.Label, 0, expectedCapacity)
		labels = append(labels, []promwrite.Label{
			{Name: "__name__", Value: fmt.Sprintf("%s_%s", prefix, metric.Name)},
			{Name: "_instance_", Value: m.config.InstanceIP},
			{Name: "instance", Value: m.config.InstanceIP},
			{Name: "_target_", Value: m.config.ServiceName},
		}...)

		for k, v := range m.config.CustomLabels {
			labels = append(labels, promwrite.Label{Name: k, Value: v})
		}

		for k, v := range metric.Labels {
			labels = append(labels, promwrite.Label{Name: k, Value: v})
		}

		result = append(result, promwrite.TimeSeries{
			Labels: labels,
			Sample: promwrite.Sample{
				Time:  metric.Timestamp,
				Value: metric.Value,
			},
		})
	}

	return result
}

// GetOutboundIPv4 gets the outbound IPv4 address of the local machine.
func GetOutboundIPv4() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
