// Package worker defines the processing unit of a pool: a named, typed
// handler that accepts the packages whose target sites it matches.
package worker

import (
	"context"
	"strings"

	"github.com/Full-finger/Loquat-sub001/message"
)

// Type classifies a worker for third-party discovery.
type Type string

// Built-in worker types. Custom types use Custom(tag).
const (
	TypeInput      Type = "input"
	TypePreProcess Type = "pre_process"
	TypeProcess    Type = "process"
	TypeOutput     Type = "output"
)

const customPrefix = "custom:"

// Custom returns a user-defined worker type.
func Custom(tag string) Type {
	return Type(customPrefix + tag)
}

// IsCustom reports whether t was built by Custom.
func (t Type) IsCustom() bool {
	return strings.HasPrefix(string(t), customPrefix)
}

// Tag returns the tag of a custom type, or "" for built-in types.
func (t Type) Tag() string {
	if !t.IsCustom() {
		return ""
	}
	return strings.TrimPrefix(string(t), customPrefix)
}

func (t Type) String() string {
	return string(t)
}

// Worker is an abstract package processor.
//
// Name is the worker's identity within a pool. Matches is the intrinsic
// capability check; the registration's matching.Rule is applied on top of it.
//
// HandleBatch must not re-emit packages it would match itself: any package
// returned through Modify that still satisfies Matches is dropped by the pool
// and reported as a dead loop.
//
// A pool never runs HandleBatch concurrently for the same worker, but a
// worker registered in more than one pool can be invoked from each of them
// at once and must then be safe for concurrent use.
type Worker interface {
	Name() string
	Type() Type
	Matches(ts message.TargetSite) bool
	HandleBatch(ctx context.Context, pkgs []message.Package) Result
}

// IsOutputSafe reports whether pkg can be emitted by w without w matching
// it again: true iff w.Matches is false for every target site of pkg.
func IsOutputSafe(w Worker, pkg message.Package) bool {
	for _, ts := range pkg.TargetSites() {
		if w.Matches(ts) {
			return false
		}
	}
	return true
}
