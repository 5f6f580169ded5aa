// Package throttle provides an [http.RoundTripper] that spaces outbound
// requests using a token bucket from [golang.org/x/time/rate].
//
// A request arriving while the bucket is empty waits for a token. The
// wait ends early when the request context ends, so aborting or timing
// out a throttled request never reaches the network:
//
//	rt, err := throttle.NewRoundTripper(
//		10, // requests per second
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
package throttle
