// Package pipeline drives packages through the nine pools of a Loquat
// pipeline.
//
//	p := pipeline.New("bot", pipeline.WithLogger(logger))
//	err := p.RegisterThirdParty(pool.Process, worker.NewRegistration(w, matching.All(), 10))
//	released, err := p.Process(ctx, batch)
//
// Process forwards the output of each pool as the input of the next, in the
// order given by pool.Types. Register places framework workers in any stage;
// RegisterThirdParty only in Input, PreProcess, Process and Output.
//
// Runner puts a Pipeline behind a pkg/workerpool goroutine pool so ingress
// collaborators such as the NATS bridge can submit batches concurrently and
// receive released packages through a Sink.
package pipeline
