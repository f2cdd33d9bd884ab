package carrier

// Signal amplitude bounds. 99 * sin(pi/4) = 70.0036, so the most common
// non-peak sample quantizes with almost no error. The bound also leaves
// headroom below the signed 8-bit limit of the sink.
const (
	SignalMax = 99
	SignalMin = -SignalMax
)

// Carrier defaults
const (
	DefaultCarrierHz = 28_000_000 // 28 MHz
	CarrierStepHz    = 1_000_000  // u/d step of the command loop
	DefaultRatio     = 4          // sample rate / carrier frequency
)

// TransferLen is the number of samples the FL2000 pulls per callback
// (osmo-fl2k FL2K_BUF_LEN, 1280 * 1024).
const TransferLen = 1280 * 1024

// supportedRatios are the samples-per-cycle values with a closed-form table.
// The maximum FL2000 sample rate is about 140 MS/s on USB 3, so ratio 10
// already limits the carrier to 14 MHz.
var supportedRatios = []int{2, 4, 6, 8, 10}
