package manager

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bluectl/internal/bluez"
)

// sortDevices orders a snapshot by its priority key: connected first,
// then paired, then by signal strength. Ties keep their existing
// relative order.
func sortDevices(devices []Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if a.Connected != b.Connected {
			return a.Connected
		}
		if a.Paired != b.Paired {
			return a.Paired
		}
		return a.RSSI > b.RSSI
	})
}

// dedupeByAddress keeps the first (highest-priority) entry per address.
// A device advertised over two radio technologies shows up under two
// object paths with one address; this is the opt-in collapse policy.
func dedupeByAddress(devices []Device) []Device {
	seen := make(map[string]struct{}, len(devices))
	out := devices[:0]
	for _, d := range devices {
		if _, dup := seen[d.Address]; dup {
			continue
		}
		seen[d.Address] = struct{}{}
		out = append(out, d)
	}
	return out
}

// buildSnapshot turns one bus enumeration into the next registry
// snapshot: filter to device objects, decode with per-device failure
// isolation, drop nameless entries, sort, and optionally collapse
// duplicate addresses. The returned index maps object path -> device in
// snapshot order.
func (m *Manager) buildSnapshot(objects bluez.ObjectMap) ([]Device, *orderedmap.OrderedMap[string, Device]) {
	devices := make([]Device, 0, len(objects))
	for path, ifaces := range objects {
		bag, ok := ifaces[bluez.DeviceIface]
		if !ok {
			continue
		}
		dev, err := decodeDevice(path, bag)
		if err != nil {
			m.logger.WithError(err).WithField("path", path).Warn("Skipping undecodable Bluetooth device")
			continue
		}
		if !displayable(dev) {
			continue
		}
		devices = append(devices, dev)
	}

	// Enumeration order is map order, i.e. random; anchor ties to the
	// object path so equal-priority devices don't shuffle between
	// refreshes.
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	sortDevices(devices)
	if m.cfg.DeduplicateAddresses {
		devices = dedupeByAddress(devices)
	}

	byPath := orderedmap.New[string, Device]()
	for _, d := range devices {
		byPath.Set(d.Path, d)
	}
	return devices, byPath
}
