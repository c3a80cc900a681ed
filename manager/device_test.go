package manager

import (
	"testing"

	dbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/srg/bluectl/internal/bluez"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name     string
		devName  string
		class    uint32
		expected DeviceType
	}{
		{
			name:     "controller by name",
			devName:  "Xbox Wireless Controller",
			expected: DeviceController,
		},
		{
			name:     "dualsense by name",
			devName:  "DualSense Wireless",
			expected: DeviceController,
		},
		{
			name:     "keyboard by name",
			devName:  "Logitech Keyboard K380",
			expected: DeviceKeyboard,
		},
		{
			name:     "mouse by name",
			devName:  "MX Mouse",
			expected: DeviceMouse,
		},
		{
			name:     "audio by name",
			devName:  "AirPods Pro",
			expected: DeviceAudio,
		},
		{
			name:    "name outranks class bits",
			devName: "Fancy Headphones",
			// peripheral/keyboard class, but the name says audio
			class:    (0x05 << 8) | (0x10 << 2),
			expected: DeviceAudio,
		},
		{
			name:     "gamepad by class",
			devName:  "Mystery Peripheral",
			class:    (0x05 << 8) | (0x02 << 2),
			expected: DeviceController,
		},
		{
			name:     "joystick by class",
			devName:  "Mystery Peripheral",
			class:    (0x05 << 8) | (0x01 << 2),
			expected: DeviceController,
		},
		{
			name:     "keyboard by class",
			devName:  "Mystery Peripheral",
			class:    (0x05 << 8) | (0x10 << 2),
			expected: DeviceKeyboard,
		},
		{
			name:     "pointing device by class",
			devName:  "Mystery Peripheral",
			class:    (0x05 << 8) | (0x20 << 2),
			expected: DeviceMouse,
		},
		{
			name:     "audio video major class",
			devName:  "Living Room",
			class:    0x04 << 8,
			expected: DeviceAudio,
		},
		{
			name:     "unrecognized peripheral minor class",
			devName:  "Mystery Peripheral",
			class:    (0x05 << 8) | (0x3F << 2),
			expected: DeviceOther,
		},
		{
			name:     "no hints at all",
			devName:  "Thermostat",
			class:    0,
			expected: DeviceOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, classifyDevice(tt.class, tt.devName))
		})
	}
}

func TestDecodeDeviceDefaults(t *testing.T) {
	// Only the address present: every other field takes its default.
	bag := bluez.PropBag{
		"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
	}

	dev, err := decodeDevice("/org/bluez/hci0/dev_AA", bag)
	require.NoError(t, err)

	require.Equal(t, "AA:BB:CC:DD:EE:FF", dev.Address)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", dev.Name)
	require.False(t, dev.Paired)
	require.False(t, dev.Connected)
	require.False(t, dev.Trusted)
	require.Equal(t, int16(-100), dev.RSSI)
	require.Equal(t, DeviceOther, dev.Type)
	require.Equal(t, "/org/bluez/hci0/dev_AA", dev.Path)
}

func TestDecodeDeviceNameFallback(t *testing.T) {
	t.Run("prefers Name over Alias", func(t *testing.T) {
		dev, err := decodeDevice("/p", bluez.PropBag{
			"Address": dbus.MakeVariant("AA:00:00:00:00:01"),
			"Name":    dbus.MakeVariant("Real Name"),
			"Alias":   dbus.MakeVariant("An Alias"),
		})
		require.NoError(t, err)
		require.Equal(t, "Real Name", dev.Name)
	})

	t.Run("falls back to Alias", func(t *testing.T) {
		dev, err := decodeDevice("/p", bluez.PropBag{
			"Address": dbus.MakeVariant("AA:00:00:00:00:01"),
			"Alias":   dbus.MakeVariant("An Alias"),
		})
		require.NoError(t, err)
		require.Equal(t, "An Alias", dev.Name)
	})

	t.Run("falls back to address", func(t *testing.T) {
		dev, err := decodeDevice("/p", bluez.PropBag{
			"Address": dbus.MakeVariant("AA:00:00:00:00:01"),
		})
		require.NoError(t, err)
		require.Equal(t, "AA:00:00:00:00:01", dev.Name)
		require.False(t, displayable(dev))
	})
}

func TestDecodeDeviceWrongType(t *testing.T) {
	_, err := decodeDevice("/p", bluez.PropBag{
		"Address": dbus.MakeVariant("AA:00:00:00:00:01"),
		"RSSI":    dbus.MakeVariant("strong"), // string where int16 is expected
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "RSSI")
}

func TestDisplayable(t *testing.T) {
	require.True(t, displayable(Device{Address: "AA", Name: "Speaker"}))
	require.False(t, displayable(Device{Address: "AA", Name: "AA"}))
	require.False(t, displayable(Device{Address: "AA"}))
}
