package manager

// OperationState tracks the single in-flight device operation a
// consumer is showing an indicator for.
type OperationState int

const (
	StateIdle OperationState = iota
	StatePairing
	StateConnecting
	StateDisconnecting
	StateShowForgetConfirm
	StateForgetting
)

func (s OperationState) String() string {
	switch s {
	case StatePairing:
		return "pairing"
	case StateConnecting:
		return "connecting"
	case StateDisconnecting:
		return "disconnecting"
	case StateShowForgetConfirm:
		return "forget-confirm"
	case StateForgetting:
		return "forgetting"
	default:
		return "idle"
	}
}

// Commander is the command surface the tracker drives. *Manager
// implements it.
type Commander interface {
	PairDevice(Device)
	ConnectDevice(Device)
	DisconnectDevice(Device)
	ForgetDevice(Device)
}

// OperationTracker is the consumer-side piece of the contract: at most
// one (state, target) pair is active at a time, and the state resets to
// Idle whenever the target disappears from the latest snapshot.
//
// The tracker is not safe for concurrent use. Drive it from the
// consumer's tick goroutine only — its Handle* methods are meant to be
// registered as manager callbacks (see Callbacks method), which already
// run there.
type OperationTracker struct {
	cmd    Commander
	state  OperationState
	target *Device
}

// NewOperationTracker creates an idle tracker issuing commands to cmd.
func NewOperationTracker(cmd Commander) *OperationTracker {
	return &OperationTracker{cmd: cmd, state: StateIdle}
}

// Callbacks returns the listener set wiring the tracker into a manager.
func (t *OperationTracker) Callbacks() Callbacks {
	return Callbacks{
		DevicesUpdated:     t.HandleDevicesUpdated,
		DeviceConnected:    t.HandleDeviceConnected,
		DeviceDisconnected: t.HandleDeviceDisconnected,
		DevicePaired:       t.HandleDevicePaired,
		PairFailed:         t.HandlePairFailed,
	}
}

// State returns the current state and target (nil while idle).
func (t *OperationTracker) State() (OperationState, *Device) {
	return t.state, t.target
}

// Busy reports whether an operation is in progress for the given
// address, driving per-device busy indicators.
func (t *OperationTracker) Busy(address string) bool {
	return t.state != StateIdle && t.state != StateShowForgetConfirm &&
		t.target != nil && t.target.Address == address
}

// RequestPair starts pairing an unpaired device. Returns false when the
// tracker is busy or the device is already paired.
func (t *OperationTracker) RequestPair(dev Device) bool {
	if t.state != StateIdle || dev.Paired {
		return false
	}
	t.set(StatePairing, dev)
	t.cmd.PairDevice(dev)
	return true
}

// RequestConnect starts connecting a paired device.
func (t *OperationTracker) RequestConnect(dev Device) bool {
	if t.state != StateIdle || !dev.Paired {
		return false
	}
	t.set(StateConnecting, dev)
	t.cmd.ConnectDevice(dev)
	return true
}

// RequestDisconnect starts disconnecting a connected device.
func (t *OperationTracker) RequestDisconnect(dev Device) bool {
	if t.state != StateIdle || !dev.Connected {
		return false
	}
	t.set(StateDisconnecting, dev)
	t.cmd.DisconnectDevice(dev)
	return true
}

// RequestForget asks for confirmation before forgetting a paired
// device; no command is issued until ConfirmForget.
func (t *OperationTracker) RequestForget(dev Device) bool {
	if t.state != StateIdle || !dev.Paired {
		return false
	}
	t.set(StateShowForgetConfirm, dev)
	return true
}

// ConfirmForget issues the forget command for the pending target.
func (t *OperationTracker) ConfirmForget() bool {
	if t.state != StateShowForgetConfirm || t.target == nil {
		return false
	}
	dev := *t.target
	t.set(StateForgetting, dev)
	t.cmd.ForgetDevice(dev)
	return true
}

// CancelForget dismisses the pending confirmation.
func (t *OperationTracker) CancelForget() {
	if t.state == StateShowForgetConfirm {
		t.reset()
	}
}

// HandleDevicesUpdated resets to Idle when the target device is absent
// from the new snapshot.
func (t *OperationTracker) HandleDevicesUpdated(devices []Device) {
	if t.state == StateIdle || t.target == nil {
		return
	}
	for _, d := range devices {
		if d.Address == t.target.Address {
			return
		}
	}
	t.reset()
}

// HandleDevicePaired auto-advances Pairing into Connecting: a freshly
// paired device is connected immediately, never dropped back to Idle.
func (t *OperationTracker) HandleDevicePaired(dev Device) {
	if t.state != StatePairing || t.target == nil || t.target.Address != dev.Address {
		return
	}
	t.set(StateConnecting, dev)
	t.cmd.ConnectDevice(dev)
}

// HandlePairFailed returns to Idle; the message itself is the
// consumer's to display via its own PairFailed listener.
func (t *OperationTracker) HandlePairFailed(string) {
	if t.state == StatePairing {
		t.reset()
	}
}

// HandleDeviceConnected completes a Connecting operation.
func (t *OperationTracker) HandleDeviceConnected(dev Device) {
	if t.state == StateConnecting && t.target != nil && t.target.Address == dev.Address {
		t.reset()
	}
}

// HandleDeviceDisconnected completes Disconnecting and Forgetting
// operations; forgetting a connected device manifests as a disconnect.
func (t *OperationTracker) HandleDeviceDisconnected(dev Device) {
	if (t.state == StateDisconnecting || t.state == StateForgetting) &&
		t.target != nil && t.target.Address == dev.Address {
		t.reset()
	}
}

func (t *OperationTracker) set(s OperationState, dev Device) {
	t.state = s
	t.target = &dev
}

func (t *OperationTracker) reset() {
	t.state = StateIdle
	t.target = nil
}
