// Package closeops exposes the month-end close operations behind the
// invocation envelope.
//
// A Service binds the engine to a store, the task catalog, optional
// close-control policies and telemetry. Each operation runs inside an
// instrumented scope: one span, a duration metric and a failure event when it
// returns an error. Errors always leave the service as *engine.CloseError so
// callers can report their class.
//
//	svc := closeops.NewService(store,
//	    closeops.WithTelemetry(tel),
//	    closeops.WithPolicyEvaluator(policies))
//
//	req, err := closeops.ReadRequest(os.Stdin)
//	if err != nil {
//	    return closeops.WriteResponse(os.Stdout, closeops.Failure(err))
//	}
//	return closeops.WriteResponse(os.Stdout, svc.Handle(ctx, req))
//
// Stores that implement engine.InstanceRecorder or engine.StatusRecorder
// persist initialized periods and status updates. Other stores receive only
// read queries.
package closeops
