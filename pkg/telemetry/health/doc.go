// Package health provides liveness and readiness probes for the decision
// service.
//
// # Overview
//
// The Checker aggregates per-component probe functions. Liveness only
// confirms the process is running; readiness runs every registered probe
// concurrently and degrades the overall status if any component reports
// unhealthy. Components register probes for the policy store and the
// verdict store at startup.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("policy_store", func(ctx context.Context) error {
//	    _, err := store.CountPolicies(ctx)
//	    return err
//	})
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, version, commit, buildTime)
package health
