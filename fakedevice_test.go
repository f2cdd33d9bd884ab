package carrier

import (
	"errors"
	"sync"
)

var errFake = errors.New("fake sink failure")

// fakeDevice records every call in order. Rates are quantized by quantize
// when set; setErr makes SetSampleRate fail without changing the rate.
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	rate     uint32
	supply   SupplyFunc
	quantize func(uint32) uint32
	setErr   error
	stopErr  error
	closeErr error
}

func (d *fakeDevice) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) StartStreaming(supply SupplyFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start")
	d.supply = supply
	return nil
}

func (d *fakeDevice) StopStreaming() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("stop")
	d.supply = nil
	return d.stopErr
}

func (d *fakeDevice) SetSampleRate(hz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set")
	if d.setErr != nil {
		return d.setErr
	}
	if d.quantize != nil {
		hz = d.quantize(hz)
	}
	d.rate = hz
	return nil
}

func (d *fakeDevice) SampleRate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	return d.closeErr
}

// pump invokes the registered supply callback n times and concatenates the data.
func (d *fakeDevice) pump(n int, errAt map[int]bool) []int8 {
	d.mu.Lock()
	supply := d.supply
	d.mu.Unlock()

	var out []int8
	for i := range n {
		tr := supply(Notification{DeviceError: errAt[i], Sequence: uint64(i)})
		out = append(out, tr.Data...)
	}
	return out
}

func (d *fakeDevice) count(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDevice) history() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func fakeOpener(dev *fakeDevice) Opener {
	return OpenerFunc(func(int) (Device, error) { return dev, nil })
}
