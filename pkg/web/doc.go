// Package web implements the controller's minimal HTTP/1.x front end.
//
// Each accepted connection carries exactly one request. The pipeline reads
// the request line and a bounded set of headers, resolves a route, and runs
// a small interpreter over the route's Result until it reaches Done. The
// connection is closed on every exit path.
//
// # Results
//
//   - Done ends the request
//   - StaticFile streams a file unchanged
//   - Templated streams a file substituting {field} placeholders
//   - Context templates the file behind the current URL
//   - Invoke calls a Handler and continues with what it returns
//
// Handlers may delegate to each other by returning Invoke; a chain longer
// than MaxDelegation steps fails the request with 500.
//
// # Routing
//
// Routes are held in insertion order. Exact patterns win over trailing
// wildcard patterns ("/api/*"); the index file answers "" and "/"; files
// with an allow-listed extension are served from the static root; anything
// else is 404.
package web
