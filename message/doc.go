// Package message defines the unit of work of the Loquat pipeline.
//
// A Package is an opaque payload plus an ordered list of TargetSite routing
// tags. A TargetSite pairs a site ID with a SiteType, a tagged variant over
// Worker, Bot, Group, User, Channel (each with a name) and Unknown.
//
// Packages are values. Workers never mutate a package they received: they
// emit new packages (WithTargetSite, WithTargetSites, WithPayload or New) and
// the pool treats the original as consumed.
//
//	site := message.NewTargetSite("10001", message.GroupSite("dev"))
//	pkg := message.New(map[string]any{"text": "hello"}, []message.TargetSite{site})
//	routed := pkg.WithTargetSite(message.NewTargetSite("echo", message.WorkerSite("echo")))
//
// The JSON form uses snake_case keys (id, payload, target_sites, created_at)
// and is what transports such as the NATS bridge put on the wire.
package message
