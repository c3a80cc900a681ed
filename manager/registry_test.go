package manager

import (
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/srg/bluectl/internal/bluez"
)

func newSnapshotManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Manager{cfg: cfg, logger: logger}
}

func devBag(address, name string, paired, connected bool, rssi int16) bluez.PropBag {
	return bluez.PropBag{
		"Address":   dbus.MakeVariant(address),
		"Name":      dbus.MakeVariant(name),
		"Paired":    dbus.MakeVariant(paired),
		"Connected": dbus.MakeVariant(connected),
		"RSSI":      dbus.MakeVariant(rssi),
	}
}

func TestSortDevices(t *testing.T) {
	devices := []Device{
		{Address: "far", RSSI: -90},
		{Address: "paired", Paired: true, RSSI: -80},
		{Address: "near", RSSI: -40},
		{Address: "connected", Paired: true, Connected: true, RSSI: -70},
	}

	sortDevices(devices)

	var order []string
	for _, d := range devices {
		order = append(order, d.Address)
	}
	require.Equal(t, []string{"connected", "paired", "near", "far"}, order)
}

func TestSortDevicesStableTies(t *testing.T) {
	devices := []Device{
		{Address: "a", RSSI: -50},
		{Address: "b", RSSI: -50},
		{Address: "c", RSSI: -50},
	}

	sortDevices(devices)

	require.Equal(t, "a", devices[0].Address)
	require.Equal(t, "b", devices[1].Address)
	require.Equal(t, "c", devices[2].Address)
}

func TestBuildSnapshot(t *testing.T) {
	objects := bluez.ObjectMap{
		"/org/bluez/hci0": {
			bluez.AdapterIface: {},
		},
		"/org/bluez/hci0/dev_1": {
			bluez.DeviceIface: devBag("AA:00:00:00:00:01", "Speaker", false, false, -60),
		},
		"/org/bluez/hci0/dev_2": {
			bluez.DeviceIface: devBag("AA:00:00:00:00:02", "Gamepad", true, true, -70),
		},
		"/org/bluez/hci0/dev_3": {
			// nameless: excluded from the snapshot
			bluez.DeviceIface: devBag("AA:00:00:00:00:03", "", false, false, -40),
		},
		"/org/bluez/hci0/dev_4": {
			// undecodable: skipped without poisoning the rest
			bluez.DeviceIface: bluez.PropBag{
				"Address": dbus.MakeVariant("AA:00:00:00:00:04"),
				"Name":    dbus.MakeVariant("Broken"),
				"Paired":  dbus.MakeVariant("yes"),
			},
		},
	}

	m := newSnapshotManager(nil)
	devices, byPath := m.buildSnapshot(objects)

	require.Len(t, devices, 2)
	require.Equal(t, "Gamepad", devices[0].Name)
	require.Equal(t, "Speaker", devices[1].Name)

	dev, ok := byPath.Get("/org/bluez/hci0/dev_2")
	require.True(t, ok)
	require.Equal(t, "Gamepad", dev.Name)
	_, ok = byPath.Get("/org/bluez/hci0/dev_3")
	require.False(t, ok)
}

func TestBuildSnapshotDeterministicTies(t *testing.T) {
	// Three identical-priority devices; map iteration order is random,
	// so repeated builds must still agree.
	objects := bluez.ObjectMap{
		"/dev_a": {bluez.DeviceIface: devBag("AA:00:00:00:00:0A", "One", false, false, -50)},
		"/dev_b": {bluez.DeviceIface: devBag("AA:00:00:00:00:0B", "Two", false, false, -50)},
		"/dev_c": {bluez.DeviceIface: devBag("AA:00:00:00:00:0C", "Three", false, false, -50)},
	}

	m := newSnapshotManager(nil)
	first, _ := m.buildSnapshot(objects)
	for i := 0; i < 10; i++ {
		next, _ := m.buildSnapshot(objects)
		require.Equal(t, first, next)
	}
}

func TestBuildSnapshotDeduplication(t *testing.T) {
	objects := bluez.ObjectMap{
		"/dev_classic": {bluez.DeviceIface: devBag("AA:00:00:00:00:01", "Dual Radio", true, false, -55)},
		"/dev_le":      {bluez.DeviceIface: devBag("AA:00:00:00:00:01", "Dual Radio", false, false, -55)},
	}

	t.Run("off by default keeps both paths", func(t *testing.T) {
		m := newSnapshotManager(nil)
		devices, _ := m.buildSnapshot(objects)
		require.Len(t, devices, 2)
	})

	t.Run("on keeps the highest-priority entry", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DeduplicateAddresses = true
		m := newSnapshotManager(cfg)
		devices, _ := m.buildSnapshot(objects)
		require.Len(t, devices, 1)
		require.True(t, devices[0].Paired)
	})
}
