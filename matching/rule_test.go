package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/message"
)

func site(id string, st message.SiteType) message.TargetSite {
	return message.NewTargetSite(id, st)
}

func TestRule_Matches(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		site     message.TargetSite
		expected bool
	}{
		{"all matches worker", All(), site("x", message.WorkerSite("a")), true},
		{"all matches unknown", All(), site("x", message.UnknownSite()), true},
		{"zero value is all", Rule{}, site("x", message.UserSite("u")), true},

		{"worker same name", Worker("a"), site("x", message.WorkerSite("a")), true},
		{"worker other name", Worker("a"), site("x", message.WorkerSite("b")), false},
		{"worker wrong kind", Worker("a"), site("x", message.BotSite("a")), false},
		{"bot", Bot("b"), site("x", message.BotSite("b")), true},
		{"group", Group("g"), site("x", message.GroupSite("g")), true},
		{"group vs channel", Group("g"), site("x", message.ChannelSite("g")), false},
		{"user", User("u"), site("x", message.UserSite("u")), true},
		{"channel", Channel("c"), site("x", message.ChannelSite("c")), true},
		{"named never matches unknown", User(""), site("x", message.UnknownSite()), false},

		{"regex substring", MustRegex("bc"), site("abcd", message.UnknownSite()), true},
		{"regex anchored miss", MustRegex("^bc$"), site("abcd", message.UnknownSite()), false},
		{"regex uses site id not name", MustRegex("echo"), site("1", message.WorkerSite("echo")), false},

		{"custom true", Custom("len", func(ts message.TargetSite) bool { return len(ts.SiteID) == 3 }), site("abc", message.UnknownSite()), true},
		{"custom false", Custom("len", func(ts message.TargetSite) bool { return len(ts.SiteID) == 3 }), site("ab", message.UnknownSite()), false},
		{"custom nil predicate", Custom("nil", nil), site("ab", message.UnknownSite()), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.rule.Matches(test.site))
		})
	}
}

func TestRule_MatchesAny(t *testing.T) {
	sites := []message.TargetSite{
		site("1", message.BotSite("b")),
		site("2", message.WorkerSite("w")),
	}
	assert.True(t, Worker("w").MatchesAny(sites))
	assert.False(t, Worker("x").MatchesAny(sites))
	assert.False(t, All().MatchesAny(nil))
}

func TestRegex_Invalid(t *testing.T) {
	_, err := Regex("([")
	require.Error(t, err)
	assert.Equal(t, errors.KindRegex, errors.KindOf(err))
	assert.True(t, errors.IsInvalid(err))

	assert.Panics(t, func() { MustRegex("([") })
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, "all", All().String())
	assert.Equal(t, "worker:a", Worker("a").String())
	assert.Equal(t, "channel:c", Channel("c").String())
	assert.Equal(t, "regex:^x", MustRegex("^x").String())
	assert.Equal(t, "custom:even", Custom("even", nil).String())
	assert.Equal(t, "custom", Custom("", nil).String())
}
