// Package pool implements the pipeline stages.
//
// A pipeline has exactly nine pools, one per Type, visited in the order
// PreInput, Input, InputMiddle, PreProcess, ProcessMiddle, Process,
// PostProcess, Output, PostOutput. Third-party workers may only be placed in
// Input, PreProcess, Process and Output.
//
// # Dispatch
//
// StandardPool.Process runs a batch in sweeps. In each sweep every package
// goes to the first registration, in ascending priority, whose rule and
// worker predicate both accept one of its target sites. The worker receives a
// single-element batch and answers:
//
//   - Release: the package leaves the pool.
//   - Modify(outs...): the package is consumed and each out re-enters the
//     next sweep, starting again from the lowest priority.
//
// Packages no worker matches leave the pool unchanged. A Modify output that
// the producing worker would match again is dropped and reported at error
// level with the worker_name and package_target_sites attributes; this is
// what guarantees the loop terminates for a single worker. Cycles across
// several workers are not detected.
//
// # Registry
//
// Worker names and priorities are unique within a pool. Violations and
// unknown names are Config errors (errors.ErrInvalidFormat and
// errors.ErrMissingRequired). Registry mutation is exclusive; dispatch holds
// a shared lock for the duration of each sweep.
package pool
