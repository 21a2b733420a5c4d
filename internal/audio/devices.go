//go:build cgo
// +build cgo

package audio

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// deviceOption pairs a selectable label with its PortAudio device. Duplicate
// device names get a "#n" suffix so every label stays unique.
type deviceOption struct {
	Label  string
	Device *portaudio.DeviceInfo
}

// ListInputDevices returns the selectable capture device labels. It brings
// PortAudio up and down around the query, so it works without a Manager.
func ListInputDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	opts, err := inputDeviceOptions()
	if err != nil {
		return nil, err
	}
	return optionLabels(opts), nil
}

// ListOutputDevices returns the selectable playback device labels.
func ListOutputDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	opts, err := outputDeviceOptions()
	if err != nil {
		return nil, err
	}
	return optionLabels(opts), nil
}

func optionLabels(opts []deviceOption) []string {
	labels := make([]string, len(opts))
	for i, opt := range opts {
		labels[i] = opt.Label
	}
	return labels
}

func inputDeviceOptions() ([]deviceOption, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return buildDeviceOptions(devices, func(d *portaudio.DeviceInfo) bool {
		return d.MaxInputChannels > 0
	}), nil
}

func outputDeviceOptions() ([]deviceOption, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return buildDeviceOptions(devices, func(d *portaudio.DeviceInfo) bool {
		return d.MaxOutputChannels > 0
	}), nil
}

func buildDeviceOptions(devices []*portaudio.DeviceInfo, usable func(*portaudio.DeviceInfo) bool) []deviceOption {
	devices = filterByHostAPI(devices)

	var opts []deviceOption
	seen := map[string]int{}
	for _, dev := range devices {
		if dev == nil || !usable(dev) {
			continue
		}
		label := dev.Name
		if n := seen[dev.Name]; n > 0 {
			label = fmt.Sprintf("%s #%d", dev.Name, n+1)
		}
		seen[dev.Name]++
		opts = append(opts, deviceOption{Label: label, Device: dev})
	}
	return opts
}

// filterByHostAPI narrows to WASAPI devices on Windows when any exist. The
// other host APIs there report phantom duplicates of every endpoint.
func filterByHostAPI(devices []*portaudio.DeviceInfo) []*portaudio.DeviceInfo {
	if runtime.GOOS != "windows" {
		return devices
	}
	var wasapi []*portaudio.DeviceInfo
	for _, dev := range devices {
		if strings.Contains(hostNameFromDevice(dev), "WASAPI") {
			wasapi = append(wasapi, dev)
		}
	}
	if len(wasapi) > 0 {
		return wasapi
	}
	return devices
}

func hostNameFromDevice(dev *portaudio.DeviceInfo) string {
	if dev == nil || dev.HostApi == nil {
		return ""
	}
	return dev.HostApi.Name
}

func resolveInputDevice(label string) (*portaudio.DeviceInfo, error) {
	opts, err := inputDeviceOptions()
	if err != nil {
		return nil, err
	}
	dev, err := pickInputDevice(opts, label)
	if err != nil {
		return nil, err
	}
	if dev != nil {
		return dev, nil
	}
	dev, err = portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("default input device: %w", err)
	}
	return dev, nil
}

// pickInputDevice maps a configured mic label to a capture device. An empty
// label selects the platform default (nil device, nil error); a non-empty
// label that matches nothing is an error, never a fallback to another mic.
func pickInputDevice(opts []deviceOption, label string) (*portaudio.DeviceInfo, error) {
	if label == "" {
		return nil, nil
	}
	if dev := matchDevice(opts, label); dev != nil {
		return dev, nil
	}
	return nil, fmt.Errorf("input device not found: %q", label)
}

func resolveOutputDevice(label string) (*portaudio.DeviceInfo, error) {
	opts, err := outputDeviceOptions()
	if err != nil {
		return nil, err
	}
	if dev := matchDevice(opts, label); dev != nil {
		return dev, nil
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("default output device: %w", err)
	}
	return dev, nil
}

// matchDevice tries an exact option label first, then a case-insensitive
// substring of the device name. Returns nil when nothing matches.
func matchDevice(opts []deviceOption, label string) *portaudio.DeviceInfo {
	if label == "" {
		return nil
	}
	for _, opt := range opts {
		if opt.Label == label {
			return opt.Device
		}
	}
	needle := strings.ToLower(label)
	for _, opt := range opts {
		if strings.Contains(strings.ToLower(opt.Device.Name), needle) {
			return opt.Device
		}
	}
	return nil
}
