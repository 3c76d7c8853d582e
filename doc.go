// Package bsplice runs HTTP responses through a chain of streaming filters and lets those filters splice the output
// of nested requests into the response.
//
// # Overview
//
// A response travels through two pipelines. The header stages see the status code and header once, before any body
// bytes; the body stages see the body as a sequence of deliveries ([Chain]), each a list of [Buffer]s. The last
// buffer of the last delivery carries the end-of-stream flag. Every stage forwards to the next stage it captured when
// the pipeline was built, the last stage writes to the client:
//
//	pipe := bsplice.NewPipeline(addition.New(logger), otherFilter)
//	mux := bsplice.NewServeMuxWith(logs, http.NewServeMux(), bsplice.NewScope("server"), pipe)
//
// # Filters
//
// A [Filter] wraps the stages after it, much like middleware wraps a handler:
//
//	type upper struct{}
//
//	func (upper) Name() string { return "upper" }
//
//	func (upper) Wrap(next bsplice.Stages) bsplice.Stages {
//	    return bsplice.Stages{Body: bsplice.BodyFilterFunc(func(r *bsplice.Request, in bsplice.Chain) error {
//	        for _, b := range in {
//	            b.Data = bytes.ToUpper(b.Data)
//	        }
//	        return next.Body.FilterBody(r, in)
//	    })}
//	}
//
// Filters keep per-request state in extension slots ([SetExt], [Ext]) keyed by a [Key] they own, and per-scope
// configuration through [ConfigResolver] and [Config].
//
// # Nested requests
//
// [Request.Subrequest] starts a nested request for a locator. Plain paths are routed through the [ServeMux] the main
// request came from; locators with a scheme are fetched by the [Source] registered for it. The call returns as soon
// as the nested request is accepted. Its output is placed in the main response at the position the stream had
// reached when it was started, and the main response does not complete before every nested request has finished.
//
// # Scopes
//
// A [Scope] is one level of configuration (server, location, ...). Settings stored on a scope are inherited by its
// children unless they set their own. Filters resolve the final configuration once per scope when a route is
// registered.
//
// # Handlers
//
// Content is produced by a [Handler], which receives an http.ResponseWriter and may return an error. If nothing was
// written yet the error becomes an error response with the status of the [*Error] (see [NewError]) or 500.
// Standard library handlers are accepted through [ServeMux.HandleStd], [ServeMux.MountStd] and [FromStd].
package bsplice
