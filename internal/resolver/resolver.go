// Package resolver provides the ports.NodeResolver implementation that
// Registrar runs a registering datanode's hostname/IP through before any
// indexing happens. Reverse-DNS lookups are an external concern and are
// not done here.
package resolver

// Passthrough returns the caller-supplied hostname and IP verbatim. Its
// UseHostname field is carried from configuration but Resolve does not
// consult it: neither string is preferred or dropped.
type Passthrough struct {
	UseHostname bool
}

// Resolve satisfies ports.NodeResolver.
func (p Passthrough) Resolve(hostName, ipAddress string) (resolvedHost, resolvedIP string) {
	return hostName, ipAddress
}
