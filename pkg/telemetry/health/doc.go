// Package health provides liveness, readiness and version endpoints.
//
// Readiness runs the registered component checks concurrently, each bounded
// by the checker timeout. The REST server registers a store check and a
// retention policy check:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.StoreCheck(store))
//	checker.RegisterCheck("policy", health.PolicyCheck(policy))
//
//	r.Get("/healthz", checker.LivenessHandler())
//	r.Get("/readyz", checker.ReadinessHandler())
package health
