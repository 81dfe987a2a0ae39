package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes one audio device visible to the host API, for display by
// the -list-devices command.
type Device struct {
	Index         int
	Name          string
	HostAPI       string
	MaxInputs     int
	MaxOutputs    int
	DefaultRate   float64
	DefaultInput  bool
	DefaultOutput bool
}

// String renders the device the way the device listing prints it.
func (d Device) String() string {
	marks := ""
	if d.DefaultInput {
		marks += " *default-input"
	}
	if d.DefaultOutput {
		marks += " *default-output"
	}
	return fmt.Sprintf("[%d] %s (%s, in=%d out=%d, %.0f Hz)%s",
		d.Index, d.Name, d.HostAPI, d.MaxInputs, d.MaxOutputs, d.DefaultRate, marks)
}

// Devices enumerates every audio device. PortAudio must be initialized.
func Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("capture: enumerate devices: %w", err)
	}
	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		d := Device{
			Index:       i,
			Name:        info.Name,
			MaxInputs:   info.MaxInputChannels,
			MaxOutputs:  info.MaxOutputChannels,
			DefaultRate: info.DefaultSampleRate,
		}
		if info.HostApi != nil {
			d.HostAPI = info.HostApi.Name
		}
		d.DefaultInput = defIn != nil && info == defIn
		d.DefaultOutput = defOut != nil && info == defOut
		devices = append(devices, d)
	}
	return devices, nil
}
