// Package bridge connects a pipeline to a publish/subscribe transport.
//
// A Bridge subscribes to an input subject, decodes each message as a Batch
// of Envelopes with the configured Codec (JSON or MessagePack), and submits
// the packages to a pipeline.Runner. It is also the Runner's Sink: released
// packages are encoded as one Batch and published on the output subject.
//
//	client, _ := natsclient.NewClient(cfg.Bridge.URL)
//	_ = client.Connect(ctx)
//
//	b, _ := bridge.New(client, bridge.Config{
//		InputSubject:  "loquat.in",
//		OutputSubject: "loquat.out",
//		Codec:         bridge.MsgpackCodec{},
//	})
//	runner := pipeline.NewRunner(p, b, pipeline.RunnerConfig{Workers: 4, QueueSize: 256})
//	_ = runner.Start(ctx)
//	_ = b.Start(ctx, runner)
//
// Undecodable messages are logged and counted, never retried.
package bridge
