package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/matching"
	"github.com/Full-finger/Loquat-sub001/message"
)

func pkgTo(sites ...message.SiteType) message.Package {
	ts := make([]message.TargetSite, len(sites))
	for i, st := range sites {
		ts[i] = message.NewTargetSite(st.Name, st)
	}
	return message.New(nil, ts)
}

func TestType(t *testing.T) {
	assert.Equal(t, "input", TypeInput.String())
	assert.Equal(t, "pre_process", TypePreProcess.String())
	assert.False(t, TypeProcess.IsCustom())
	assert.Empty(t, TypeOutput.Tag())

	c := Custom("audit")
	assert.True(t, c.IsCustom())
	assert.Equal(t, "audit", c.Tag())
	assert.Equal(t, "custom:audit", c.String())
}

func TestResult(t *testing.T) {
	r := Release()
	assert.True(t, r.IsRelease())
	assert.Nil(t, r.Packages())
	assert.Equal(t, "release", r.String())

	p := pkgTo(message.WorkerSite("b"))
	m := Modify(p)
	assert.False(t, m.IsRelease())
	require.Len(t, m.Packages(), 1)
	assert.Equal(t, p.ID(), m.Packages()[0].ID())
	assert.Equal(t, "modify", m.String())

	d := Drop()
	assert.False(t, d.IsRelease())
	assert.Empty(t, d.Packages())
}

func TestFunc_Defaults(t *testing.T) {
	w := New("echo", TypeProcess, nil, nil)
	assert.Equal(t, "echo", w.Name())
	assert.Equal(t, TypeProcess, w.Type())
	assert.True(t, w.Matches(message.NewTargetSite("x", message.UnknownSite())))
	assert.True(t, w.HandleBatch(context.Background(), nil).IsRelease())
}

func TestIsOutputSafe(t *testing.T) {
	w := New("a", TypeProcess, MatchSiteType(message.WorkerSite("a")), nil)

	assert.True(t, IsOutputSafe(w, pkgTo(message.WorkerSite("b"))))
	assert.True(t, IsOutputSafe(w, pkgTo()))
	assert.False(t, IsOutputSafe(w, pkgTo(message.WorkerSite("a"))))
	assert.False(t, IsOutputSafe(w, pkgTo(message.WorkerSite("b"), message.WorkerSite("a"))))
}

func TestRegistration_Matches(t *testing.T) {
	// the worker only handles bots; the rule narrows to bot "alpha"
	w := New("bots", TypeProcess, func(ts message.TargetSite) bool {
		return ts.SiteType.Kind == message.SiteBot
	}, nil)
	reg := NewRegistration(w, matching.Bot("alpha"), 3)

	assert.Equal(t, "bots", reg.Name())
	assert.Equal(t, uint32(3), reg.Priority)

	alpha := message.NewTargetSite("1", message.BotSite("alpha"))
	beta := message.NewTargetSite("2", message.BotSite("beta"))
	user := message.NewTargetSite("3", message.UserSite("alpha"))

	assert.True(t, reg.Matches([]message.TargetSite{alpha}))
	assert.True(t, reg.Matches([]message.TargetSite{beta, alpha}))
	assert.False(t, reg.Matches([]message.TargetSite{beta}))
	assert.False(t, reg.Matches(nil))

	// both must hold on the same site
	all := NewRegistration(w, matching.User("alpha"), 0)
	assert.False(t, all.Matches([]message.TargetSite{user, beta}))
}
