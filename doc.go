// Package strut is a contract-first HTTP endpoint framework for Go.
// Handler signatures are the source of truth: request inputs arrive as
// typed extractors, responses leave as typed responders with fixed
// status codes, and the framework derives routing, binding, and the
// OpenAPI 3.1 document from the same declarations it validated at
// registration time.
//
// Handlers take extractors and return a responder:
//
//	func getWidget(ctx context.Context, p strut.Path[WidgetPath]) (strut.OK[Widget], error)
//
// Endpoints are registered with package-level functions against a
// Service, and every contract violation is reported at registration,
// not at request time:
//
//	svc := strut.New(strut.WithTitle("Widgets"), strut.WithVersion("1.0.0"))
//	if err := strut.Get(svc, "/widgets/{id}", getWidget); err != nil {
//	    log.Fatal(err)
//	}
//
// Extractor targets use struct tags for binding:
//
//	type WidgetPath struct {
//	    ID string `path:"id"`
//	}
//
// Route templates support literal segments, {variables}, and a trailing
// {wildcard...}; literal segments win over variables at the same
// position. Middleware uses the standard func(http.Handler) http.Handler
// signature, so the Go middleware ecosystem works natively.
//
// The OpenAPI document is generated from the registered endpoints and is
// byte-for-byte deterministic for a fixed set of registrations:
//
//	svc.ServeSpec("/openapi.json")
package strut
