package worker

import (
	"slices"

	"github.com/Full-finger/Loquat-sub001/message"
)

// Result is the outcome of HandleBatch.
//
// Release: the input packages are done with this pool and advance to the next.
// Modify: the input packages are consumed and the returned packages re-enter
// the current pool's dispatch loop. Modify with no packages drops the input.
type Result struct {
	modify bool
	pkgs   []message.Package
}

// Release advances the handled packages to the next pool.
func Release() Result {
	return Result{}
}

// Modify replaces the handled packages with pkgs.
func Modify(pkgs ...message.Package) Result {
	return Result{modify: true, pkgs: slices.Clone(pkgs)}
}

// Drop consumes the handled packages without replacement.
func Drop() Result {
	return Modify()
}

// IsRelease reports whether r is a Release.
func (r Result) IsRelease() bool {
	return !r.modify
}

// Packages returns the packages of a Modify result; nil for Release.
func (r Result) Packages() []message.Package {
	return r.pkgs
}

func (r Result) String() string {
	if r.IsRelease() {
		return "release"
	}
	return "modify"
}
