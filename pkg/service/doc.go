// Package service runs AVRCP sessions for an application.
//
// A Dispatcher owns one session per control connection. It routes link
// layer messages and signals to the right session, serializes all work on
// a connection, and carries out what the session produced once the
// session lock is released:
//
//   - messages go to the Transport
//   - keys go to the KeyInjector
//   - events go to the registered handlers
//   - timers are scheduled and post their work back to the connection
//
// Example usage:
//
//	cfg := service.DefaultConfig()
//	cfg.Transport = link
//	cfg.KeyInjector = keys
//
//	d, err := service.New(cfg)
//	d.OnEvent(func(ev session.Event) { ... })
//	d.Start(ctx)
//	defer d.Stop()
//
//	link.Attach(d)
//
// Without Start, every call is processed inline on the caller's goroutine.
package service
