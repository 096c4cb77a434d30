package worker

import (
	"context"

	"github.com/Full-finger/Loquat-sub001/message"
)

// MatchFunc is the intrinsic site predicate of a Func worker.
type MatchFunc func(message.TargetSite) bool

// HandleFunc is the batch handler of a Func worker.
type HandleFunc func(ctx context.Context, pkgs []message.Package) Result

// Func is a Worker assembled from closures.
type Func struct {
	name   string
	typ    Type
	match  MatchFunc
	handle HandleFunc
}

// New builds a Worker from closures. A nil match accepts every site; a nil
// handle releases every batch.
func New(name string, typ Type, match MatchFunc, handle HandleFunc) *Func {
	if match == nil {
		match = func(message.TargetSite) bool { return true }
	}
	if handle == nil {
		handle = func(context.Context, []message.Package) Result { return Release() }
	}
	return &Func{name: name, typ: typ, match: match, handle: handle}
}

// Name implements Worker.
func (f *Func) Name() string { return f.name }

// Type implements Worker.
func (f *Func) Type() Type { return f.typ }

// Matches implements Worker.
func (f *Func) Matches(ts message.TargetSite) bool { return f.match(ts) }

// HandleBatch implements Worker.
func (f *Func) HandleBatch(ctx context.Context, pkgs []message.Package) Result {
	return f.handle(ctx, pkgs)
}

// MatchSiteType returns a MatchFunc accepting sites of exactly st.
func MatchSiteType(st message.SiteType) MatchFunc {
	return func(ts message.TargetSite) bool {
		return ts.SiteType == st
	}
}
