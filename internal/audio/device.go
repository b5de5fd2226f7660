package audio

// Device describes an audio device visible to the host. The info field is
// the opaque PortAudio handle used to reopen capture on this device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64

	info *portaudioDeviceInfo
}

// HostDevices returns all audio devices known to the host, in PortAudio
// index order.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			info:              info,
		}
	}

	return devices, nil
}
