// Package shutdown runs registered hooks when the process is asked to stop.
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait(ctx) // SIGINT, SIGTERM, ctx done or Trigger
package shutdown
