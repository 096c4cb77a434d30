package bridge

import (
	"strconv"
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
)

// Batch is one wire message: a group of packages submitted or released
// together.
type Batch struct {
	Packages []Envelope `json:"packages" msgpack:"packages"`
}

// Envelope is the wire form of a message.Package.
type Envelope struct {
	ID          string    `json:"id,omitempty" msgpack:"id,omitempty"`
	Payload     any       `json:"payload,omitempty" msgpack:"payload,omitempty"`
	TargetSites []Site    `json:"target_sites" msgpack:"target_sites"`
	CreatedAt   time.Time `json:"created_at,omitempty" msgpack:"created_at,omitempty"`
}

// Site is the wire form of a message.TargetSite. Kind is the lower-case
// site kind name ("user", "group", ...).
type Site struct {
	ID   string `json:"site_id" msgpack:"site_id"`
	Kind string `json:"kind" msgpack:"kind"`
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
}

// FromPackage converts a package to its wire form.
func FromPackage(pkg message.Package) Envelope {
	sites := pkg.TargetSites()
	wire := make([]Site, len(sites))
	for i, ts := range sites {
		wire[i] = Site{ID: ts.SiteID, Kind: ts.SiteType.Kind.String(), Name: ts.SiteType.Name}
	}
	return Envelope{
		ID:          pkg.ID(),
		Payload:     pkg.Payload(),
		TargetSites: wire,
		CreatedAt:   pkg.CreatedAt(),
	}
}

// ToPackage converts the envelope back into a package. A missing ID or
// timestamp is filled in the same way message.New does.
func (e Envelope) ToPackage() (message.Package, error) {
	sites := make([]message.TargetSite, len(e.TargetSites))
	for i, s := range e.TargetSites {
		var kind message.SiteKind
		if err := kind.UnmarshalText([]byte(s.Kind)); err != nil {
			return message.Package{}, err
		}
		if kind != message.SiteUnknown && s.Name == "" {
			return message.Package{}, errors.MissingRequired("Envelope", "ToPackage",
				"target_sites["+s.ID+"].name")
		}
		sites[i] = message.NewTargetSite(s.ID, message.SiteType{Kind: kind, Name: s.Name})
	}

	opts := []message.Option{message.WithID(e.ID)}
	if !e.CreatedAt.IsZero() {
		opts = append(opts, message.WithTime(e.CreatedAt))
	}
	return message.New(e.Payload, sites, opts...), nil
}

// NewBatch wraps packages for the wire.
func NewBatch(pkgs []message.Package) Batch {
	b := Batch{Packages: make([]Envelope, len(pkgs))}
	for i, pkg := range pkgs {
		b.Packages[i] = FromPackage(pkg)
	}
	return b
}

// ToPackages converts every envelope, failing on the first invalid one.
func (b Batch) ToPackages() ([]message.Package, error) {
	out := make([]message.Package, 0, len(b.Packages))
	for i, env := range b.Packages {
		pkg, err := env.ToPackage()
		if err != nil {
			return nil, errors.WrapInvalid(err, "Batch", "ToPackages", "convert envelope "+strconv.Itoa(i))
		}
		out = append(out, pkg)
	}
	return out, nil
}
