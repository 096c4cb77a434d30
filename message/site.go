package message

import (
	"fmt"
	"strings"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// SiteKind is the variant tag of a SiteType.
type SiteKind int

// Site kinds. Unknown carries no name.
const (
	SiteUnknown SiteKind = iota
	SiteWorker
	SiteBot
	SiteGroup
	SiteUser
	SiteChannel
)

var siteKindNames = map[SiteKind]string{
	SiteUnknown: "unknown",
	SiteWorker:  "worker",
	SiteBot:     "bot",
	SiteGroup:   "group",
	SiteUser:    "user",
	SiteChannel: "channel",
}

// String returns the lower-case name of the kind.
func (k SiteKind) String() string {
	if name, ok := siteKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k SiteKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SiteKind) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for kind, n := range siteKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return errors.InvalidFormat("SiteKind", "UnmarshalText", fmt.Sprintf("unknown site kind %q", name))
}

// SiteType classifies a TargetSite within the addressing scheme.
type SiteType struct {
	Kind SiteKind `json:"kind"`
	Name string   `json:"name,omitempty"`
}

// WorkerSite addresses a named worker.
func WorkerSite(name string) SiteType { return SiteType{Kind: SiteWorker, Name: name} }

// BotSite addresses a named bot.
func BotSite(name string) SiteType { return SiteType{Kind: SiteBot, Name: name} }

// GroupSite addresses a named group.
func GroupSite(name string) SiteType { return SiteType{Kind: SiteGroup, Name: name} }

// UserSite addresses a named user.
func UserSite(name string) SiteType { return SiteType{Kind: SiteUser, Name: name} }

// ChannelSite addresses a named channel.
func ChannelSite(name string) SiteType { return SiteType{Kind: SiteChannel, Name: name} }

// UnknownSite is the site type of unclassified destinations.
func UnknownSite() SiteType { return SiteType{Kind: SiteUnknown} }

// String renders "kind:name", or just "unknown".
func (s SiteType) String() string {
	if s.Kind == SiteUnknown {
		return s.Kind.String()
	}
	return s.Kind.String() + ":" + s.Name
}

// TargetSite is a routing tag: where a package is directed.
type TargetSite struct {
	SiteID   string   `json:"site_id"`
	SiteType SiteType `json:"site_type"`
}

// NewTargetSite creates a TargetSite.
func NewTargetSite(siteID string, siteType SiteType) TargetSite {
	return TargetSite{SiteID: siteID, SiteType: siteType}
}

// String renders "site_id@kind:name" for logs.
func (ts TargetSite) String() string {
	return ts.SiteID + "@" + ts.SiteType.String()
}

// SiteStrings renders a list of sites for structured log attributes.
func SiteStrings(sites []TargetSite) []string {
	out := make([]string, len(sites))
	for i, s := range sites {
		out[i] = s.String()
	}
	return out
}
