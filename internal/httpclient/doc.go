// Package httpclient builds the HTTP clients shared by the probes of one
// endpoint.
//
// [NewClient] returns a client whose Timeout bounds every probe and whose
// transport keeps enough idle connections for all workers of a query to reuse
// theirs between probes:
//
//	client := httpclient.NewClient(5*time.Second, 10)
//	defer client.CloseIdleConnections()
//
// [StaticHeaders] validates and canonicalizes the user supplied headers that
// are attached to every probe.
package httpclient
