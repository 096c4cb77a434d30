package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
)

func TestNew(t *testing.T) {
	site := NewTargetSite("10001", GroupSite("dev"))
	sites := []TargetSite{site}
	p := New("hello", sites)

	assert.NotEmpty(t, p.ID())
	assert.Equal(t, "hello", p.Payload())
	assert.Equal(t, []TargetSite{site}, p.TargetSites())
	assert.False(t, p.CreatedAt().IsZero())

	// construction copies the caller's slice
	sites[0] = NewTargetSite("other", UnknownSite())
	assert.Equal(t, site, p.TargetSites()[0])

	// so does the accessor
	got := p.TargetSites()
	got[0] = NewTargetSite("mutated", UnknownSite())
	assert.Equal(t, site, p.TargetSites()[0])
}

func TestNew_Options(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := New(nil, nil, WithID("fixed"), WithTime(at))

	assert.Equal(t, "fixed", p.ID())
	assert.Equal(t, at, p.CreatedAt())
	assert.Empty(t, p.TargetSites())

	assert.NotEqual(t, New(nil, nil).ID(), New(nil, nil).ID())
}

func TestWithTargetSite(t *testing.T) {
	a := NewTargetSite("a", WorkerSite("a"))
	b := NewTargetSite("b", WorkerSite("b"))

	original := New(1, []TargetSite{a})
	derived := original.WithTargetSite(b)

	assert.Equal(t, []TargetSite{a}, original.TargetSites())
	assert.Equal(t, []TargetSite{a, b}, derived.TargetSites())
	assert.Equal(t, original.ID(), derived.ID())

	// siblings derived from one origin do not share backing storage
	c := NewTargetSite("c", WorkerSite("c"))
	sibling := original.WithTargetSite(c)
	assert.Equal(t, []TargetSite{a, b}, derived.TargetSites())
	assert.Equal(t, []TargetSite{a, c}, sibling.TargetSites())
}

func TestWithTargetSitesAndPayload(t *testing.T) {
	a := NewTargetSite("a", BotSite("a"))
	p := New("x", []TargetSite{a})

	replaced := p.WithTargetSites(NewTargetSite("u", UserSite("u")))
	assert.Equal(t, "u", replaced.TargetSites()[0].SiteID)
	assert.Equal(t, "a", p.TargetSites()[0].SiteID)

	repaid := p.WithPayload("y")
	assert.Equal(t, "y", repaid.Payload())
	assert.Equal(t, "x", p.Payload())
}

func TestSiteType_String(t *testing.T) {
	assert.Equal(t, "worker:echo", WorkerSite("echo").String())
	assert.Equal(t, "bot:b", BotSite("b").String())
	assert.Equal(t, "group:g", GroupSite("g").String())
	assert.Equal(t, "user:u", UserSite("u").String())
	assert.Equal(t, "channel:c", ChannelSite("c").String())
	assert.Equal(t, "unknown", UnknownSite().String())
	assert.Equal(t, "42@user:alice", NewTargetSite("42", UserSite("alice")).String())
	assert.Equal(t, []string{"1@bot:x", "2@unknown"},
		SiteStrings([]TargetSite{NewTargetSite("1", BotSite("x")), NewTargetSite("2", UnknownSite())}))
}

func TestPackage_JSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := New(map[string]any{"text": "hi"},
		[]TargetSite{NewTargetSite("10001", GroupSite("dev"))},
		WithID("pkg-1"), WithTime(at))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "pkg-1",
		"payload": {"text": "hi"},
		"target_sites": [{"site_id": "10001", "site_type": {"kind": "group", "name": "dev"}}],
		"created_at": "2024-05-01T12:00:00Z"
	}`, string(data))

	var decoded Package
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pkg-1", decoded.ID())
	assert.Equal(t, map[string]any{"text": "hi"}, decoded.Payload())
	assert.Equal(t, p.TargetSites(), decoded.TargetSites())
	assert.True(t, at.Equal(decoded.CreatedAt()))
}

func TestPackage_UnmarshalDefaults(t *testing.T) {
	var p Package
	require.NoError(t, json.Unmarshal([]byte(`{"target_sites":[{"site_id":"x","site_type":{"kind":"unknown"}}]}`), &p))
	assert.NotEmpty(t, p.ID())
	assert.Nil(t, p.Payload())
	assert.Equal(t, SiteUnknown, p.TargetSites()[0].SiteType.Kind)
}

func TestPackage_UnmarshalErrors(t *testing.T) {
	var p Package
	err := json.Unmarshal([]byte(`{"target_sites":[{"site_id":"x","site_type":{"kind":"planet"}}]}`), &p)
	require.Error(t, err)

	err = p.UnmarshalJSON([]byte(`not json`))
	require.Error(t, err)
	assert.Equal(t, errors.KindParse, errors.KindOf(err))
}
