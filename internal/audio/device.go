package audio

import "fmt"

// ListInputDevices returns all devices that can capture
func ListInputDevices(h Host) ([]Device, error) {
	devices, err := h.Devices(Input)
	if err != nil {
		return nil, fmt.Errorf("failed to list input devices: %w", err)
	}
	return devices, nil
}

// ListOutputDevices returns all devices that can play
func ListOutputDevices(h Host) ([]Device, error) {
	devices, err := h.Devices(Output)
	if err != nil {
		return nil, fmt.Errorf("failed to list output devices: %w", err)
	}
	return devices, nil
}

// SelectInput returns the device matching id by ID or name, or the
// default input device when id is empty.
func SelectInput(h Host, id string) (Device, error) {
	if id == "" {
		return h.DefaultInputDevice()
	}
	return selectDevice(h, Input, id)
}

// SelectOutput is SelectInput for playback devices
func SelectOutput(h Host, id string) (Device, error) {
	if id == "" {
		return h.DefaultOutputDevice()
	}
	return selectDevice(h, Output, id)
}

func selectDevice(h Host, dir Direction, id string) (Device, error) {
	devices, err := h.Devices(dir)
	if err != nil {
		return Device{}, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.ID == id || d.Name == id {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s device %q not found", ErrNoDevice, dir, id)
}
