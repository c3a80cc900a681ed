// Package bluez wraps the system message bus surface the manager needs
// from the BlueZ service: object enumeration, the device/adapter method
// calls, the Trusted property, and the property-change signal stream.
//
// The Bus interface is intentionally narrow so behavior tests can script
// it without a running bus daemon.
package bluez

import (
	"errors"
	"time"

	dbus "github.com/godbus/dbus/v5"
)

const (
	Service = "org.bluez"

	AdapterIface = "org.bluez.Adapter1"
	DeviceIface  = "org.bluez.Device1"

	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

// PropBag is a typed property bag as delivered by enumeration or a
// change notification. Values keep their wire type tag.
type PropBag map[string]dbus.Variant

// ObjectMap maps object path -> interface name -> property bag.
type ObjectMap map[string]map[string]PropBag

// PropertyChange is one PropertiesChanged notification scoped to the
// device interface.
type PropertyChange struct {
	Path        string
	Changed     PropBag
	Invalidated []string
}

// Bus is the consumed capability of the IPC bus. All methods are
// synchronous method-call/reply; DeviceProperties is the one signal
// subscription.
type Bus interface {
	// ManagedObjects enumerates every object of the BlueZ service.
	ManagedObjects() (ObjectMap, error)

	StartDiscovery(adapterPath string) error
	StopDiscovery(adapterPath string) error

	Pair(devicePath string) error
	Connect(devicePath string) error
	Disconnect(devicePath string) error
	RemoveDevice(adapterPath, devicePath string) error
	SetTrusted(devicePath string, trusted bool) error

	// DeviceProperties subscribes once, with a server-side match filter,
	// to property-change notifications for the device interface. The
	// returned queue is bounded with overwrite-oldest semantics.
	DeviceProperties(queueSize int) (PropertyStream, error)

	Close() error
}

// PropertyStream is the consumer side of the signal subscription.
// PopTimeout returning ok=false is a normal poll cycle unless Closed
// reports the subscription is gone (connection lost or shut down).
type PropertyStream interface {
	PopTimeout(d time.Duration) (PropertyChange, bool)
	Closed() bool
}

// Factory creates the production Bus against the system bus.
// This is a variable so that it can be overridden in tests.
var Factory = func(callTimeout time.Duration) (Bus, error) {
	return NewSystemBus(callTimeout)
}

// ReplyError extracts the message of a protocol-level error reply.
// ok is false for transport-level failures (connection lost, timeouts),
// which callers handle separately.
func ReplyError(err error) (msg string, ok bool) {
	var dbErr dbus.Error
	if !errors.As(err, &dbErr) {
		return "", false
	}
	if len(dbErr.Body) > 0 {
		if s, sok := dbErr.Body[0].(string); sok && s != "" {
			return s, true
		}
	}
	return dbErr.Name, true
}

// ParsePropertiesChanged decodes a PropertiesChanged signal body into
// the changed interface name and a PropertyChange. ok is false for
// malformed bodies.
func ParsePropertiesChanged(sig *dbus.Signal) (iface string, pc PropertyChange, ok bool) {
	if sig == nil || len(sig.Body) < 3 {
		return "", PropertyChange{}, false
	}
	iface, iok := sig.Body[0].(string)
	changed, cok := sig.Body[1].(map[string]dbus.Variant)
	invalidated, vok := sig.Body[2].([]string)
	if !iok || !cok || !vok {
		return "", PropertyChange{}, false
	}
	return iface, PropertyChange{
		Path:        string(sig.Path),
		Changed:     PropBag(changed),
		Invalidated: invalidated,
	}, true
}
