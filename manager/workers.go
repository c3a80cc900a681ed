package manager

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/srg/bluectl/internal/bluez"
	"github.com/srg/bluectl/internal/groutine"
)

// Each command spawns an independent one-shot worker; operations arrive
// at human-interaction rates, so there is no shared pool or queue.
// Workers on the same device address are serialized by the inflight
// guard instead: a second command against a busy device is rejected.

// StartScan begins active discovery. A no-op while unavailable or
// already scanning (no bus call is made).
func (m *Manager) StartScan() {
	m.mu.Lock()
	if m.adapterPath == "" || m.scanning {
		m.mu.Unlock()
		return
	}
	adapter := m.adapterPath
	m.mu.Unlock()

	groutine.Go(nil, "bt-scan-start", func(ctx context.Context) {
		if err := m.bus.StartDiscovery(adapter); err != nil {
			m.logger.WithError(err).Warn("Failed to start Bluetooth scan")
			return
		}
		m.mu.Lock()
		m.scanning = true
		m.mu.Unlock()
		m.logger.Debug("Started Bluetooth scan")
	})
}

// StopScan ends active discovery. A no-op while unavailable or not
// scanning.
func (m *Manager) StopScan() {
	m.mu.Lock()
	if m.adapterPath == "" || !m.scanning {
		m.mu.Unlock()
		return
	}
	adapter := m.adapterPath
	m.mu.Unlock()

	groutine.Go(nil, "bt-scan-stop", func(ctx context.Context) {
		if err := m.bus.StopDiscovery(adapter); err != nil {
			m.logger.WithError(err).Warn("Failed to stop Bluetooth scan")
			return
		}
		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
		m.logger.Debug("Stopped Bluetooth scan")
	})
}

// PairDevice trusts the device, then pairs it. A rejected or failed
// pair surfaces its message through the pair-failed callback; on
// success the device is re-looked-up after the forced refresh, since
// the refresh can outrun the bus's own state update.
func (m *Manager) PairDevice(dev Device) {
	m.spawnOp(OpPair, dev, func() {
		if err := m.bus.SetTrusted(dev.Path, true); err != nil {
			m.deviceLog(dev).WithError(err).Warn("Failed to set trusted flag")
		}

		if err := m.bus.Pair(dev.Path); err != nil {
			msg, isReply := bluez.ReplyError(err)
			if !isReply {
				msg = err.Error()
			}
			m.deviceLog(dev).WithField("error", msg).Warn("Failed to pair with device")
			m.emitPairFailed(dev, msg)
			return
		}

		m.deviceLog(dev).Info("Paired with device")
		m.refreshDevices()
		if updated, ok := m.deviceByPath(dev.Path); ok {
			m.emitDevicePaired(updated)
		}
	})
}

// ConnectDevice connects a paired device. Failures are logged (and
// surfaced only through the optional unified OperationFailed callback);
// success forces a refresh.
func (m *Manager) ConnectDevice(dev Device) {
	m.spawnOp(OpConnect, dev, func() {
		if err := m.bus.Connect(dev.Path); err != nil {
			m.failOp(dev, OpConnect, err)
			return
		}
		m.deviceLog(dev).Info("Connected to device")
		m.refreshDevices()
	})
}

// DisconnectDevice disconnects a connected device.
func (m *Manager) DisconnectDevice(dev Device) {
	m.spawnOp(OpDisconnect, dev, func() {
		if err := m.bus.Disconnect(dev.Path); err != nil {
			m.failOp(dev, OpDisconnect, err)
			return
		}
		m.deviceLog(dev).Info("Disconnected from device")
		m.refreshDevices()
	})
}

// ForgetDevice removes the device from the adapter, dropping its
// pairing record.
func (m *Manager) ForgetDevice(dev Device) {
	m.mu.Lock()
	adapter := m.adapterPath
	m.mu.Unlock()

	m.spawnOp(OpForget, dev, func() {
		if err := m.bus.RemoveDevice(adapter, dev.Path); err != nil {
			m.failOp(dev, OpForget, err)
			return
		}
		m.deviceLog(dev).Info("Forgot device")
		m.refreshDevices()
	})
}

// spawnOp runs fn in its own worker goroutine, unless the manager is
// unavailable or another operation is already in flight for the same
// address.
func (m *Manager) spawnOp(op Operation, dev Device, fn func()) {
	if !m.IsAvailable() {
		return
	}
	if current, loaded := m.inflight.GetOrInsert(dev.Address, op); loaded {
		m.deviceLog(dev).WithField("in_flight", current.String()).
			Warn("Operation already in flight for device")
		return
	}

	groutine.Go(nil, "bt-"+op.String()+"-worker:"+dev.Address, func(ctx context.Context) {
		defer m.inflight.Del(dev.Address)
		fn()
	})
}

// failOp logs an operation failure, classifying protocol-level error
// replies apart from transport failures, and feeds the unified
// OperationFailed callback. Neither failure kind stops the background
// loops.
func (m *Manager) failOp(dev Device, op Operation, err error) {
	msg, isReply := bluez.ReplyError(err)
	if !isReply {
		msg = err.Error()
	}
	m.deviceLog(dev).WithFields(logrus.Fields{
		"operation":   op.String(),
		"error":       msg,
		"error_reply": isReply,
	}).Warn("Device operation failed")
	m.emitOperationFailed(dev, op, msg)
}

func (m *Manager) deviceLog(dev Device) *logrus.Entry {
	return m.logger.WithFields(logrus.Fields{
		"device":  dev.Name,
		"address": dev.Address,
	})
}
