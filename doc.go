// Package sector provides an in-process supervision framework.
//
// Work runs in processors. A sector is a processor that owns subresources,
// forwards interrupt and terminate signals to them, and aggregates their
// exits into its own exit report. Interrupt always succeeds; terminate is
// honored only at declared break points.
//
// End-users typically interact with the framework via the Service façade
// exposed by the root package:
//
//	srv, _ := sector.New(sector.WithName("app"))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	_ = rt.Dispatch(ctx, dispatch.Every(time.Second, poll))
//	_ = rt.Terminate("/app")
//	report, _ := rt.Wait(ctx)
//
// Lower level building blocks live in runtime/processor (Processor, Sector,
// Join), runtime/transaction (parameter scopes) and service/dispatch (ready
// made leaf processors).
package sector
