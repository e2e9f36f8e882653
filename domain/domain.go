// Package domain defines the Request and Domain data types shared across
// the fusion, filter, rank, and pipeline packages.
//
// A Domain is modeled as composition, not inheritance: a name plus an
// explicit ordered collection of Requests, with a Merge method that
// performs a set-preserving union. This is a deliberate departure from
// the "Domain extends List<Request>" shape of the batch-stage's source
// system.
package domain

// Request is an immutable record of one HTTP transaction observed for a
// Domain. Identity is structural equality over every field.
type Request struct {
	Timestamp int64
	Method    string
	Target    string
	Status    int
	BytesIn   int64
	BytesOut  int64
	ClientID  string
}

// Equal reports whether r and o are the same Request by structural equality.
func (r Request) Equal(o Request) bool {
	return r == o
}

// Domain is a host name plus the ordered sequence of Requests observed
// for it. Two Domains are "the same domain" iff their Names match.
type Domain struct {
	Name     string
	requests []Request
	index    map[Request]struct{}
}

// NewDomain constructs an empty Domain with the given name.
func NewDomain(name string) *Domain {
	return &Domain{Name: name}
}

// AddRequest appends r to d's request sequence unless an identical
// Request (by structural equality) is already present.
func (d *Domain) AddRequest(r Request) {
	if d.index == nil {
		d.index = make(map[Request]struct{})
	}
	if _, ok := d.index[r]; ok {
		return
	}
	d.index[r] = struct{}{}
	d.requests = append(d.requests, r)
}

// Requests returns the ordered sequence of Requests recorded for d.
// The returned slice must be treated as read-only by callers.
func (d *Domain) Requests() []Request {
	return d.requests
}

// Len returns the number of distinct Requests recorded for d.
func (d *Domain) Len() int {
	return len(d.requests)
}

// Merge combines o's Requests into d (the receiver), using set
// semantics over Request identity. Receiver order is preserved: d's
// existing requests keep their position, and any Request present in o
// but absent from d is appended in o's order.
func (d *Domain) Merge(o *Domain) {
	if o == nil {
		return
	}
	for _, r := range o.requests {
		d.AddRequest(r)
	}
}

// Clone returns a deep copy of d: a new Domain with the same name and
// an independent copy of the request sequence.
func (d *Domain) Clone() *Domain {
	clone := NewDomain(d.Name)
	for _, r := range d.requests {
		clone.AddRequest(r)
	}
	return clone
}

// DeepEqual reports whether d and o have the same name and the same
// request set (order-independent, per §3's "requests-as-set" equality).
func (d *Domain) DeepEqual(o *Domain) bool {
	if o == nil || d.Name != o.Name || len(d.requests) != len(o.requests) {
		return false
	}
	for _, r := range d.requests {
		if _, ok := o.index[r]; !ok {
			return false
		}
	}
	return true
}
