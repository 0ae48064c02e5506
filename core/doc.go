// Package core holds the HTTP plumbing shared by modules: typed handlers
// (Wrap), request binders, the JSON envelope and the HTTPError catalogue.
//
//	type gateRequest struct {
//		UserID    uuid.UUID `path:"userID"`
//		ProductID string    `path:"productID"`
//	}
//
//	r.Post("/{userID}/{productID}/gate", core.Wrap(h.gate,
//		core.WithBinders[gateRequest](core.BindPath(chi.URLParam)),
//	))
package core
