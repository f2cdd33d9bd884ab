package carrier

// Notification is passed by the sink to every supply call.
type Notification struct {
	// DeviceError reports that the previous transfer completed in error.
	DeviceError bool

	// Sequence is the sink's transfer counter, for diagnostics only.
	Sequence uint64
}

// Transfer describes the samples the sink reads next. Data references
// memory owned by the supplier; the sink must not modify it.
type Transfer struct {
	Data   []int8
	Signed bool
}

// SupplyFunc is the pull callback registered with the sink. It is invoked
// on a sink-owned goroutine, one call at a time.
type SupplyFunc func(Notification) Transfer

// Device is an opened DAC sink.
type Device interface {
	// StartStreaming registers supply and starts pulling transfers.
	StartStreaming(supply SupplyFunc) error

	// StopStreaming stops pulling. No supply call is made after it returns.
	StopStreaming() error

	// SetSampleRate requests a sample rate. The sink may round it to the
	// nearest rate its clock can produce. On error the previous rate stays.
	SetSampleRate(hz uint32) error

	// SampleRate reads back the rate currently in effect.
	SampleRate() uint32

	// Close releases the device.
	Close() error
}

// Opener opens a sink by index.
type Opener interface {
	Open(index int) (Device, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(index int) (Device, error)

// Open calls f(index).
func (f OpenerFunc) Open(index int) (Device, error) {
	return f(index)
}
