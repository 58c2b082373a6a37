package devices

// Device represents an on-chip peripheral. Devices hold no copy of
// the register state they operate on: everything lives in the
// microcontroller's internal data memory and is accessed through Memory.
type Device interface {
	// ID yields the manufacturer and serial number for the device.
	ID() ID

	// Reset returns internal bookkeeping, like pin histories,
	// to its power-on state.
	Reset()

	// Sample observes the device's input pins. It is called once per
	// cycle, before the instruction for that cycle is fetched.
	Sample(Memory)

	// Advance moves the device forward by the given number of
	// machine cycles. It is called once per cycle, after the
	// instruction for that cycle was executed.
	Advance(mem Memory, cycles int)
}

// Map contains a list of connected peripherals.
type Map []Device

// Connect adds the given device to the device map.
// Returns false if the device type is already present in the set.
func (dm *Map) Connect(dev Device) bool {
	if (*dm).Find(dev.ID()) > -1 {
		return false
	}

	*dm = append(*dm, dev)
	return true
}

// Reset resets all devices.
func (dm Map) Reset() {
	for _, dev := range dm {
		dev.Reset()
	}
}

// Sample lets all devices observe their input pins.
func (dm Map) Sample(m Memory) {
	for _, dev := range dm {
		dev.Sample(m)
	}
}

// Advance moves all devices forward by the given number of machine cycles.
func (dm Map) Advance(m Memory, cycles int) {
	for _, dev := range dm {
		dev.Advance(m, cycles)
	}
}

// Find returns the index for the device with the given id.
// Returns -1 if it can't be found.
func (dm Map) Find(id ID) int {
	for i, dev := range dm {
		if dev.ID() == id {
			return i
		}
	}
	return -1
}
