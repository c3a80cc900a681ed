// Package manager runs the background orchestration of Bluetooth
// peripherals: it discovers the adapter over the system message bus,
// keeps a classified device registry fresh, reacts to connection-state
// signals, and executes pair/connect/disconnect/forget commands in
// one-shot workers.
//
// Thread-safety: the command and query methods are safe for concurrent
// use. Consumer callbacks never run on manager goroutines; they are
// queued and executed only inside ProcessCallbacks, which the consumer
// calls once per tick on its own goroutine.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bluectl/internal/bluez"
	"github.com/srg/bluectl/internal/groutine"
)

// Manager is constructed once per process. Background loops start only
// after adapter discovery succeeds; if no adapter is ever found the
// manager stays in the unavailable state, which is a normal operating
// mode rather than an error.
type Manager struct {
	cfg    *Config
	logger *logrus.Logger
	bus    bluez.Bus // nil when the bus itself was unreachable

	mu          sync.Mutex
	devices     []Device
	byPath      *orderedmap.OrderedMap[string, Device]
	adapterPath string
	active      bool
	scanning    bool
	lastScan    time.Time

	queueMu   sync.Mutex
	queue     []func()
	listeners listeners

	// inflight guards against concurrent operations racing on one
	// device; concurrency across distinct devices is fine.
	inflight *hashmap.Map[string, Operation]

	exitCh       chan struct{}
	stopOnce     sync.Once
	loopsStarted bool // guarded by mu
	scannerDone  chan struct{}
	monitorDone  chan struct{}
}

// New connects to the system bus and begins adapter discovery in the
// background. A nil cfg uses DefaultConfig; a nil logger gets a fresh
// one. When the bus is unreachable the manager is returned anyway: it
// reports unavailable and every command is a no-op.
func New(cfg *Config, logger *logrus.Logger) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	m := &Manager{
		cfg:         cfg,
		logger:      logger,
		byPath:      orderedmap.New[string, Device](),
		inflight:    hashmap.New[string, Operation](),
		exitCh:      make(chan struct{}),
		scannerDone: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}

	bus, err := bluez.Factory(cfg.CallTimeout)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to system bus for Bluetooth")
		return m
	}
	m.bus = bus

	groutine.Go(nil, "bt-adapter-discovery", m.discoverAdapter)
	return m
}

// discoverAdapter enumerates bus objects until one exposes the adapter
// interface, then starts the scanner and monitor loops. Only shutdown
// stops it.
func (m *Manager) discoverAdapter(ctx context.Context) {
	for {
		select {
		case <-m.exitCh:
			return
		default:
		}

		objects, err := m.bus.ManagedObjects()
		if err != nil {
			m.logger.WithError(err).Warn("Error finding Bluetooth adapter")
		} else {
			for path, ifaces := range objects {
				if _, ok := ifaces[bluez.AdapterIface]; !ok {
					continue
				}
				m.logger.WithField("adapter", path).Info("Found Bluetooth adapter")
				m.mu.Lock()
				m.adapterPath = path
				m.loopsStarted = true
				m.mu.Unlock()
				groutine.Go(nil, "bt-scanner", m.scannerLoop)
				groutine.Go(nil, "bt-signal-monitor", m.monitorLoop)
				return
			}
		}

		select {
		case <-m.exitCh:
			return
		case <-time.After(m.cfg.DiscoveryRetryInterval):
		}
	}
}

// scannerLoop refreshes the registry at ScanPeriod while the manager is
// active, sleeping in short ticks so it stays responsive to
// activation changes and shutdown.
func (m *Manager) scannerLoop(ctx context.Context) {
	defer close(m.scannerDone)

	ticker := time.NewTicker(m.cfg.ScannerTick)
	defer ticker.Stop()

	for {
		select {
		case <-m.exitCh:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		due := m.active && time.Since(m.lastScan) > m.cfg.ScanPeriod
		m.mu.Unlock()
		if !due {
			continue
		}

		m.refreshDevices()
		m.mu.Lock()
		m.lastScan = time.Now()
		m.mu.Unlock()
	}
}

// monitorLoop waits on the property-change subscription with a bounded
// timeout. A changed Connected flag for a device still present in the
// registry dispatches the connected/disconnected callback, then a full
// refresh: consistency wins over incremental patching.
func (m *Manager) monitorLoop(ctx context.Context) {
	defer close(m.monitorDone)

	stream, err := m.bus.DeviceProperties(m.cfg.SignalQueueSize)
	if err != nil {
		m.logger.WithError(err).Error("Failed to subscribe to Bluetooth property changes")
		return
	}

	for {
		select {
		case <-m.exitCh:
			return
		default:
		}

		if !m.isActive() {
			select {
			case <-m.exitCh:
				return
			case <-time.After(m.cfg.InactivePoll):
			}
			continue
		}

		change, ok := stream.PopTimeout(m.cfg.SignalWait)
		if !ok {
			if stream.Closed() {
				// Subscription gone (connection dropped or closing down);
				// without it this loop would spin on instant timeouts.
				m.logger.Warn("Bluetooth property stream closed, stopping monitor")
				return
			}
			continue // timeout: a normal poll cycle
		}

		variant, present := change.Changed["Connected"]
		if !present {
			continue
		}
		connected, isBool := variant.Value().(bool)
		if !isBool {
			m.logger.WithField("path", change.Path).Warn("Malformed Connected property change")
			continue
		}

		dev, found := m.deviceByPath(change.Path)
		if !found {
			continue
		}
		if connected {
			m.emitDeviceConnected(dev)
		} else {
			m.emitDeviceDisconnected(dev)
		}
		m.refreshDevices()
	}
}

// refreshDevices rebuilds the registry wholesale from one enumeration.
// The coarse lock serializes concurrent triggers (scanner, monitor,
// workers) so refreshes never interleave, and no consumer observes a
// partially updated registry.
func (m *Manager) refreshDevices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adapterPath == "" {
		return
	}

	objects, err := m.bus.ManagedObjects()
	if err != nil {
		m.logger.WithError(err).Warn("Failed to get Bluetooth objects")
		return
	}

	m.devices, m.byPath = m.buildSnapshot(objects)
	m.emitDevicesUpdated(m.devices)
}

func (m *Manager) deviceByPath(path string) (Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPath.Get(path)
}

// IsAvailable reports whether an adapter has been found. It stays false
// for the process lifetime when the bus is unreachable or no radio
// hardware exists.
func (m *Manager) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adapterPath != ""
}

// IsScanning reports whether active discovery is running.
func (m *Manager) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

func (m *Manager) isActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Devices returns the latest registry snapshot.
func (m *Manager) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out
}

// SetActive marks the orchestrator active or idle. Activating after
// more than half a scan period forces the next scanner tick to refresh
// immediately, so a consumer becoming visible sees fresh data.
func (m *Manager) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	if active && time.Since(m.lastScan) > m.cfg.ScanPeriod/2 {
		m.lastScan = time.Time{}
	}
}

// Stop shuts the manager down: raise the exit flag, stop active
// scanning, join the scanner and monitor loops with a bounded timeout
// (proceeding regardless of the join outcome), then close the bus
// connections last. Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.exitCh)
		m.StopScan()

		m.mu.Lock()
		started := m.loopsStarted
		m.mu.Unlock()
		if started {
			waitTimeout(m.scannerDone, m.cfg.StopJoinTimeout)
			waitTimeout(m.monitorDone, m.cfg.StopJoinTimeout)
		}

		if m.bus != nil {
			if err := m.bus.Close(); err != nil {
				m.logger.WithError(err).Debug("Error closing bus connections")
			}
		}
	})
}

func waitTimeout(done <-chan struct{}, d time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
