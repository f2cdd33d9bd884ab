// Package carrier generates a continuous RF carrier on an FL2000-class USB
// VGA DAC by streaming a precomputed sine cycle at a programmable sample rate.
//
// The DAC emits samples at whatever rate it is programmed to, so a table
// holding one carrier cycle of ratio samples produces a carrier at
// sampleRate / ratio. Retuning the carrier means reprogramming the sample
// rate; the samples themselves never change while streaming.
//
// # Features
//
//   - Closed-form ratio tables for 2, 4, 6, 8 and 10 samples per cycle,
//     odd-symmetric with zero DC and a sample on each peak
//   - Allocation-free, lock-free buffer supply for the sink's pull callback
//   - Phase-continuous streaming even when the cycle does not divide the
//     transfer length
//   - Carrier retuning with read-back of the rate the device really applied
//   - An ordered, idempotent shutdown that stops the transfer before closing
//     the device
//
// # Quick Start
//
//	sess, err := carrier.NewSession(carrier.DefaultConfig(), opener, logger)
//	if err != nil {
//	    log.Fatal(err) // configuration error
//	}
//	if err := sess.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Shutdown()
//
//	if err := sess.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	st, err := sess.Controller().SetCarrierFrequency(28_000_000)
//	fmt.Println(st.AppliedRateHz, st.EffectiveHz) // 111998976 27999744
//
// opener is any [Opener]; the sink is abstracted behind [Device] so that a
// USB driver binding or the in-process simulator can be plugged in.
//
// # Buffer Layouts
//
// The FL2000 pulls transfers of [TransferLen] samples. How the cycle is tiled
// into those transfers is chosen by [Strategy]:
//
//   - [StrategyStatic]: one region, used when ratio divides the transfer length.
//   - [StrategyAlternating]: two identical regions served in turn.
//   - [StrategyRotating]: TransferLen + ratio samples with regions starting at
//     successive phases, so each transfer starts where the previous one ended.
//     Used for ratio 6, since 1280*1024 is not a multiple of 6.
//   - [StrategyAuto]: static when possible, rotating otherwise.
//
// # Concurrency
//
// The sink calls [Supplier.Supply] on its own goroutine. Supply reads only
// immutable data and an atomic counter, so [Controller] calls and
// [Session.Shutdown] may run concurrently with it. Shutdown may be called any
// number of times from any goroutine; only the first call touches the device.
package carrier
