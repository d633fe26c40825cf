package domain

import (
	"fmt"
	"net/url"
)

// Replica is one running backend instance registered under a logical
// service name. Replicas are owned exclusively by the Registry; callers
// elsewhere borrow a non-owning reference for the duration of one dispatch.
type Replica struct {
	URL     *url.URL
	Name    string
	Service string
	Weight  int
	Healthy bool
}

// NewReplica validates and constructs a Replica. Weight defaults to 1 when
// non-positive, matching the "positive integer, default 1" invariant.
func NewReplica(service, name, endpoint string, weight int) (*Replica, error) {
	if service == "" {
		return nil, fmt.Errorf("replica: service name must not be empty")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedEndpoint, endpoint)
	}
	if weight <= 0 {
		weight = 1
	}

	return &Replica{
		URL:     parsed,
		Name:    name,
		Service: service,
		Weight:  weight,
		Healthy: true,
	}, nil
}

// Endpoint returns the replica's endpoint as scheme://host[:port].
func (r *Replica) Endpoint() string {
	return r.URL.Scheme + "://" + r.URL.Host
}

// SameIdentity reports whether two replicas refer to the same backend
// instance, used by Registry.Deregister to find the entry to remove.
func (r *Replica) SameIdentity(name, endpoint string) bool {
	return r.Name == name && r.Endpoint() == endpoint
}
