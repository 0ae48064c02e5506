// Package billing mounts the billing core on a chi router: the provider
// webhook endpoint and the per-subscription API used by product backends
// (provision, read, gate, record usage, checkout, checkout verification).
//
//	r := chi.NewRouter()
//	r.Mount("/", billing.Router(svc, billing.WithLogger(log)))
//
// Domain errors are mapped to HTTP statuses in errors.go; gate denials are
// 402 (quota) and 403 (blocked).
package billing
