// Package server hosts the Fiber HTTP service, the request middleware chain and
// the repository registry that owns one cmis.Session per configured repository.
// Browse, invalidation and diagnostics routes live in the routes subpackage and
// are attached by the caller, so keep exports narrow and accept explicit
// dependencies.
package server
