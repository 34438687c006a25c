package capture

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
)

// DeviceConfig describes the input device to open.
type DeviceConfig struct {
	// Device selects the input: empty for the system default, a numeric
	// index, or a case-insensitive name substring.
	Device          string
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// Device captures audio from a PortAudio input device.
type Device struct {
	config DeviceConfig
	sink   Sink
	logger *slog.Logger

	stream *portaudio.Stream
	name   string
	seq    uint64
}

// NewDevice creates a microphone source. Frames are delivered on the
// PortAudio callback thread.
func NewDevice(config DeviceConfig, sink Sink, logger *slog.Logger) *Device {
	return &Device{config: config, sink: sink, logger: logger}
}

// Start opens the input stream and begins capture.
func (d *Device) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio subsystem: %w", err)
	}

	dev, err := resolveDevice(d.config.Device)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	d.name = dev.Name

	if d.config.Channels > dev.MaxInputChannels {
		portaudio.Terminate()
		return fmt.Errorf("device %s supports %d input channels, requested %d",
			dev.Name, dev.MaxInputChannels, d.config.Channels)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = d.config.Channels
	params.SampleRate = float64(d.config.SampleRate)
	params.FramesPerBuffer = d.config.FramesPerBuffer

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open input stream on %s: %w", dev.Name, err)
	}
	d.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start input stream on %s: %w", dev.Name, err)
	}

	d.logger.Info("Capture started",
		slog.String("device", dev.Name),
		slog.Int("sample_rate", d.config.SampleRate),
		slog.Int("channels", d.config.Channels))
	return nil
}

func (d *Device) callback(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		d.logger.Warn("Input overflow on capture device", slog.String("device", d.name))
	}

	// The callback buffer is reused by PortAudio, copy before handing off.
	samples := make([]float32, len(in))
	copy(samples, in)

	d.sink(audio.Frame{
		Samples:   samples,
		Channels:  d.config.Channels,
		Seq:       d.seq,
		Timestamp: time.Now(),
	})
	d.seq++
}

// Stop ends capture and releases the device.
func (d *Device) Stop() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Stop()
	if closeErr := d.stream.Close(); err == nil {
		err = closeErr
	}
	d.stream = nil
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("failed to stop capture device %s: %w", d.name, err)
	}
	d.logger.Info("Capture stopped", slog.String("device", d.name))
	return nil
}

// Name returns the resolved device name, available after Start.
func (d *Device) Name() string {
	if d.name == "" {
		return "default input"
	}
	return d.name
}

// InputDevice describes an available capture device.
type InputDevice struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// ListDevices enumerates input-capable devices.
func ListDevices() ([]InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio subsystem: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	defaultDev, _ := portaudio.DefaultInputDevice()

	var inputs []InputDevice
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		inputs = append(inputs, InputDevice{
			Index:      i,
			Name:       dev.Name,
			Channels:   dev.MaxInputChannels,
			SampleRate: dev.DefaultSampleRate,
			Default:    defaultDev != nil && dev.Name == defaultDev.Name,
		})
	}
	return inputs, nil
}

// resolveDevice maps a device spec to a PortAudio device. Must be called
// between Initialize and Terminate.
func resolveDevice(spec string) (*portaudio.DeviceInfo, error) {
	if spec == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	if index, err := strconv.Atoi(spec); err == nil {
		if index < 0 || index >= len(devices) {
			return nil, fmt.Errorf("device index %d out of range (%d devices)", index, len(devices))
		}
		if devices[index].MaxInputChannels < 1 {
			return nil, fmt.Errorf("device %d (%s) has no input channels", index, devices[index].Name)
		}
		return devices[index], nil
	}

	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), strings.ToLower(spec)) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", spec)
}
