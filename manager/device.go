package manager

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/srg/bluectl/internal/bluez"
)

// DeviceType classifies a device for display purposes.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceController
	DeviceAudio
	DeviceKeyboard
	DeviceMouse
	DeviceOther
)

func (t DeviceType) String() string {
	switch t {
	case DeviceController:
		return "controller"
	case DeviceAudio:
		return "audio"
	case DeviceKeyboard:
		return "keyboard"
	case DeviceMouse:
		return "mouse"
	case DeviceOther:
		return "other"
	default:
		return "unknown"
	}
}

// Device is one classified entry of a registry snapshot. Address is the
// stable identity; Path is the bus object path backing it, which may
// change across enumeration cycles.
type Device struct {
	Address   string
	Name      string
	Paired    bool
	Connected bool
	Trusted   bool
	Type      DeviceType
	RSSI      int16
	Path      string
}

// Bluetooth baseband major/minor device class codes used as the
// classification fallback when the display name gives no hint.
const (
	majorClassAudioVideo = 0x04
	majorClassPeripheral = 0x05

	minorClassJoystick = 0x01
	minorClassGamepad  = 0x02
	minorClassKeyboard = 0x10
	minorClassPointing = 0x20
)

func classifyDevice(deviceClass uint32, name string) DeviceType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "controller"), strings.Contains(n, "gamepad"),
		strings.Contains(n, "dualsense"), strings.Contains(n, "dualshock"):
		return DeviceController
	case strings.Contains(n, "keyboard"):
		return DeviceKeyboard
	case strings.Contains(n, "mouse"):
		return DeviceMouse
	case strings.Contains(n, "airpods"), strings.Contains(n, "headphone"),
		strings.Contains(n, "speaker"), strings.Contains(n, "audio"):
		return DeviceAudio
	}

	// Fall back to the class bitfield: major class in bits 8-12,
	// minor class in bits 2-7.
	switch (deviceClass >> 8) & 0x1F {
	case majorClassPeripheral:
		switch (deviceClass >> 2) & 0x3F {
		case minorClassJoystick, minorClassGamepad:
			return DeviceController
		case minorClassKeyboard:
			return DeviceKeyboard
		case minorClassPointing:
			return DeviceMouse
		}
	case majorClassAudioVideo:
		return DeviceAudio
	}

	return DeviceOther
}

// deviceSchema declares every recognized property with its default.
// Defaults are substituted for absent keys; a present key whose value
// has the wrong type fails the decode of that one device only.
var deviceSchema = map[string]interface{}{
	"Address":   "",
	"Name":      "",
	"Alias":     "",
	"Paired":    false,
	"Connected": false,
	"Trusted":   false,
	"Class":     uint32(0),
	"RSSI":      int16(-100),
}

func resolveProps(bag bluez.PropBag) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(deviceSchema))
	for key, def := range deviceSchema {
		variant, present := bag[key]
		if !present {
			out[key] = def
			continue
		}
		value := variant.Value()
		if reflect.TypeOf(value) != reflect.TypeOf(def) {
			return nil, fmt.Errorf("property %q: got %T, want %T", key, value, def)
		}
		out[key] = value
	}
	return out, nil
}

// decodeDevice builds a Device from a property bag, applying the schema
// defaults and the Name -> Alias -> Address display-name fallback.
func decodeDevice(path string, bag bluez.PropBag) (Device, error) {
	props, err := resolveProps(bag)
	if err != nil {
		return Device{}, err
	}

	address := props["Address"].(string)
	name := props["Name"].(string)
	if name == "" {
		name = props["Alias"].(string)
	}
	if name == "" {
		name = address
	}

	return Device{
		Address:   address,
		Name:      name,
		Paired:    props["Paired"].(bool),
		Connected: props["Connected"].(bool),
		Trusted:   props["Trusted"].(bool),
		Type:      classifyDevice(props["Class"].(uint32), name),
		RSSI:      props["RSSI"].(int16),
		Path:      path,
	}, nil
}

// displayable reports whether a device carries a usable display name.
// Nameless devices are treated as advertisement noise and excluded from
// snapshots.
func displayable(d Device) bool {
	return d.Name != "" && d.Name != d.Address
}
