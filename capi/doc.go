// Package capi is the public, instrumented atomic API user programs write
// against (§6 "Instrumented atomic API"), mirroring the public surface the
// teacher exposes as its top-level race package over an internal engine:
// capi is a thin wrapper over package driver/execution that builds an
// Action for every call, hands it to the driver via Handle.Submit, and
// returns the model-chosen value.
//
// A capi-based test program looks like a transliteration of one of
// c11tester's pthread_test programs: declare shared Atomic/Mutex/Cond
// values, spawn threads with Go, and call Load/Store/Lock/Wait from inside
// each thread body against the *driver.Handle that identifies it.
//
//	func main() {
//		cfg := config.Default()
//		d := driver.New(cfg, fuzzer.NewRandomFuzzer(1, 1), zerolog.Nop())
//		var flag capi.Atomic
//		var data capi.Atomic
//		capi.RunMain(d, func(h *driver.Handle) {
//			data.Init(h, 0, 8)
//			flag.Init(h, 0, 8)
//			capi.Go(d, h, func(h *driver.Handle) {
//				data.Store(h, capi.Relaxed, 42)
//				flag.Store(h, capi.Release, 1)
//			})
//			for {
//				if v, _ := flag.Load(h, capi.Acquire); v != 0 {
//					break
//				}
//			}
//			r, _ := data.Load(h, capi.Relaxed)
//			_ = r
//		})
//		d.Run(context.Background())
//	}
package capi
