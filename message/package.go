package message

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// Package is the unit of work routed through the pipeline: an opaque payload
// plus an ordered list of TargetSite routing tags.
//
// Package is a value. Nothing a worker does to a Package it received is
// visible to other workers; transformations produce new packages.
//
// Construction using functional options:
//
//	pkg := message.New(payload, []message.TargetSite{site})
//	pkg := message.New(payload, sites, message.WithID(correlationID))
type Package struct {
	id        string
	payload   any
	sites     []TargetSite
	createdAt time.Time
}

// Option is a functional option for configuring Package construction.
type Option func(*Package)

// WithID sets the package ID instead of generating one.
func WithID(id string) Option {
	return func(p *Package) {
		if id != "" {
			p.id = id
		}
	}
}

// WithTime sets a specific creation timestamp instead of using time.Now().
func WithTime(createdAt time.Time) Option {
	return func(p *Package) {
		p.createdAt = createdAt
	}
}

// New creates a Package. The sites slice is copied.
func New(payload any, sites []TargetSite, opts ...Option) Package {
	p := Package{
		id:        uuid.New().String(),
		payload:   payload,
		sites:     slices.Clone(sites),
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ID returns the package identifier. Derived packages (WithTargetSite,
// WithPayload) keep the ID of their origin for correlation.
func (p Package) ID() string {
	return p.id
}

// Payload returns the opaque payload.
func (p Package) Payload() any {
	return p.payload
}

// TargetSites returns a copy of the routing tags.
func (p Package) TargetSites() []TargetSite {
	return slices.Clone(p.sites)
}

// CreatedAt returns the creation time.
func (p Package) CreatedAt() time.Time {
	return p.createdAt
}

// WithTargetSite returns a package with ts appended. p is unchanged.
func (p Package) WithTargetSite(ts TargetSite) Package {
	sites := make([]TargetSite, len(p.sites), len(p.sites)+1)
	copy(sites, p.sites)
	p.sites = append(sites, ts)
	return p
}

// WithTargetSites returns a package whose routing tags are replaced by sites.
func (p Package) WithTargetSites(sites ...TargetSite) Package {
	p.sites = slices.Clone(sites)
	return p
}

// WithPayload returns a package carrying payload. p is unchanged.
func (p Package) WithPayload(payload any) Package {
	p.payload = payload
	p.sites = slices.Clone(p.sites)
	return p
}

type wireFormat struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	TargetSites []TargetSite    `json:"target_sites"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarshalJSON implements json.Marshaler.
func (p Package) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if p.payload != nil {
		data, err := json.Marshal(p.payload)
		if err != nil {
			return nil, errors.Parse(err, "Package", "MarshalJSON", "encode payload")
		}
		raw = data
	}

	sites := p.sites
	if sites == nil {
		sites = []TargetSite{}
	}

	return json.Marshal(wireFormat{
		ID:          p.id,
		Payload:     raw,
		TargetSites: sites,
		CreatedAt:   p.createdAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The payload is decoded into a
// generic value (map, slice, string, float64, bool). A missing ID is generated.
func (p *Package) UnmarshalJSON(data []byte) error {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Parse(err, "Package", "UnmarshalJSON", "decode wire format")
	}

	var payload any
	if len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, &payload); err != nil {
			return errors.Parse(err, "Package", "UnmarshalJSON", "decode payload")
		}
	}

	if wire.ID == "" {
		wire.ID = uuid.New().String()
	}
	if wire.CreatedAt.IsZero() {
		wire.CreatedAt = time.Now()
	}

	*p = Package{
		id:        wire.ID,
		payload:   payload,
		sites:     wire.TargetSites,
		createdAt: wire.CreatedAt,
	}
	return nil
}
