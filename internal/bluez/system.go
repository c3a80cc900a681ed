package bluez

import (
	"context"
	"fmt"
	"time"

	dbus "github.com/godbus/dbus/v5"

	"github.com/srg/bluectl/internal/groutine"
	"github.com/srg/bluectl/internal/sigqueue"
)

// systemBus talks to BlueZ over two private system-bus connections: one
// for synchronous method calls and one dedicated to the signal
// subscription, so a slow signal consumer never stalls a method reply.
type systemBus struct {
	calls       *dbus.Conn
	monitor     *dbus.Conn
	callTimeout time.Duration
}

// NewSystemBus opens both connections. callTimeout bounds every blocking
// method call; in-flight calls are not otherwise cancellable.
func NewSystemBus(callTimeout time.Duration) (Bus, error) {
	calls, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect system bus: %w", err)
	}
	monitor, err := dbus.ConnectSystemBus()
	if err != nil {
		calls.Close()
		return nil, fmt.Errorf("bluez: connect monitor bus: %w", err)
	}
	return &systemBus{calls: calls, monitor: monitor, callTimeout: callTimeout}, nil
}

func (b *systemBus) call(path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(context.Background(), b.callTimeout)
	defer cancel()
	return b.calls.Object(Service, path).CallWithContext(ctx, method, 0, args...)
}

func (b *systemBus) ManagedObjects() (ObjectMap, error) {
	call := b.call("/", objManagerIface+".GetManagedObjects")
	if call.Err != nil {
		return nil, call.Err
	}
	var raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := call.Store(&raw); err != nil {
		return nil, fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}
	objects := make(ObjectMap, len(raw))
	for path, ifaces := range raw {
		bags := make(map[string]PropBag, len(ifaces))
		for iface, props := range ifaces {
			bags[iface] = PropBag(props)
		}
		objects[string(path)] = bags
	}
	return objects, nil
}

func (b *systemBus) StartDiscovery(adapterPath string) error {
	return b.call(dbus.ObjectPath(adapterPath), AdapterIface+".StartDiscovery").Err
}

func (b *systemBus) StopDiscovery(adapterPath string) error {
	return b.call(dbus.ObjectPath(adapterPath), AdapterIface+".StopDiscovery").Err
}

func (b *systemBus) Pair(devicePath string) error {
	return b.call(dbus.ObjectPath(devicePath), DeviceIface+".Pair").Err
}

func (b *systemBus) Connect(devicePath string) error {
	return b.call(dbus.ObjectPath(devicePath), DeviceIface+".Connect").Err
}

func (b *systemBus) Disconnect(devicePath string) error {
	return b.call(dbus.ObjectPath(devicePath), DeviceIface+".Disconnect").Err
}

func (b *systemBus) RemoveDevice(adapterPath, devicePath string) error {
	return b.call(dbus.ObjectPath(adapterPath), AdapterIface+".RemoveDevice",
		dbus.ObjectPath(devicePath)).Err
}

func (b *systemBus) SetTrusted(devicePath string, trusted bool) error {
	return b.call(dbus.ObjectPath(devicePath), propsIface+".Set",
		DeviceIface, "Trusted", dbus.MakeVariant(trusted)).Err
}

func (b *systemBus) DeviceProperties(queueSize int) (PropertyStream, error) {
	if err := b.monitor.AddMatchSignal(
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return nil, fmt.Errorf("bluez: add match: %w", err)
	}

	sigCh := make(chan *dbus.Signal, 16)
	b.monitor.Signal(sigCh)

	q := sigqueue.New[PropertyChange](queueSize)
	groutine.Go(nil, "bluez-signal-pump", func(ctx context.Context) {
		// sigCh is closed by the connection on Close; the pump ends with it.
		for sig := range sigCh {
			iface, pc, ok := ParsePropertiesChanged(sig)
			if !ok || iface != DeviceIface {
				continue
			}
			q.Push(pc)
		}
		q.Close()
	})
	return q, nil
}

func (b *systemBus) Close() error {
	// Monitor first so the signal pump winds down before the call
	// connection disappears.
	err := b.monitor.Close()
	if cerr := b.calls.Close(); err == nil {
		err = cerr
	}
	return err
}
