package manager

// Operation identifies one of the four device commands.
type Operation int

const (
	OpPair Operation = iota
	OpConnect
	OpDisconnect
	OpForget
)

func (o Operation) String() string {
	switch o {
	case OpPair:
		return "pair"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpForget:
		return "forget"
	default:
		return "unknown"
	}
}

// Callbacks is one consumer's set of listeners. Any field may be nil.
//
// Every callback fires on the consumer's own goroutine, during
// ProcessCallbacks, in the order the events were produced. Workers and
// background loops never invoke them inline.
type Callbacks struct {
	// DevicesUpdated delivers each new registry snapshot.
	DevicesUpdated func([]Device)

	DeviceConnected    func(Device)
	DeviceDisconnected func(Device)

	// DevicePaired receives the refreshed device after a successful pair.
	DevicePaired func(Device)

	// PairFailed receives the decoded error message of a rejected pair.
	PairFailed func(string)

	// OperationFailed is a unified failure surface covering all four
	// operations. Without it, connect/disconnect/forget failures are
	// logged only, matching the historical pair-only asymmetry.
	OperationFailed func(Device, Operation, string)
}

type listeners struct {
	devicesUpdated     []func([]Device)
	deviceConnected    []func(Device)
	deviceDisconnected []func(Device)
	devicePaired       []func(Device)
	pairFailed         []func(string)
	operationFailed    []func(Device, Operation, string)
}

// AddCallbacks registers a consumer's listeners. Safe to call from any
// goroutine, though consumers typically register once before SetActive.
func (m *Manager) AddCallbacks(cb Callbacks) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if cb.DevicesUpdated != nil {
		m.listeners.devicesUpdated = append(m.listeners.devicesUpdated, cb.DevicesUpdated)
	}
	if cb.DeviceConnected != nil {
		m.listeners.deviceConnected = append(m.listeners.deviceConnected, cb.DeviceConnected)
	}
	if cb.DeviceDisconnected != nil {
		m.listeners.deviceDisconnected = append(m.listeners.deviceDisconnected, cb.DeviceDisconnected)
	}
	if cb.DevicePaired != nil {
		m.listeners.devicePaired = append(m.listeners.devicePaired, cb.DevicePaired)
	}
	if cb.PairFailed != nil {
		m.listeners.pairFailed = append(m.listeners.pairFailed, cb.PairFailed)
	}
	if cb.OperationFailed != nil {
		m.listeners.operationFailed = append(m.listeners.operationFailed, cb.OperationFailed)
	}
}

// ProcessCallbacks drains the dispatch queue and runs every queued
// callback on the calling goroutine, in enqueue order. Consumers call
// this exactly once per tick; there is no blocking wait.
func (m *Manager) ProcessCallbacks() {
	m.queueMu.Lock()
	queued := m.queue
	m.queue = nil
	m.queueMu.Unlock()

	for _, cb := range queued {
		cb()
	}
}

func (m *Manager) emitDevicesUpdated(snapshot []Device) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, fn := range m.listeners.devicesUpdated {
		fn := fn
		m.queue = append(m.queue, func() { fn(snapshot) })
	}
}

func (m *Manager) emitDeviceConnected(dev Device) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, fn := range m.listeners.deviceConnected {
		fn := fn
		m.queue = append(m.queue, func() { fn(dev) })
	}
}

func (m *Manager) emitDeviceDisconnected(dev Device) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, fn := range m.listeners.deviceDisconnected {
		fn := fn
		m.queue = append(m.queue, func() { fn(dev) })
	}
}

func (m *Manager) emitDevicePaired(dev Device) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, fn := range m.listeners.devicePaired {
		fn := fn
		m.queue = append(m.queue, func() { fn(dev) })
	}
}

func (m *Manager) emitPairFailed(dev Device, msg string) {
	m.queueMu.Lock()
	for _, fn := range m.listeners.pairFailed {
		fn := fn
		m.queue = append(m.queue, func() { fn(msg) })
	}
	m.queueMu.Unlock()
	m.emitOperationFailed(dev, OpPair, msg)
}

func (m *Manager) emitOperationFailed(dev Device, op Operation, msg string) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, fn := range m.listeners.operationFailed {
		fn := fn
		m.queue = append(m.queue, func() { fn(dev, op, msg) })
	}
}
