// Package natsclient wraps a NATS connection for the Loquat bridge.
//
// Connect dials with exponential backoff (pkg/retry) and tracks the
// connection through Disconnected, Connecting, Connected, Reconnecting and
// Closed. Publish and Subscribe take a context so the client satisfies the
// bridge Transport interface directly:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithName("loquat"),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
// Subscription handlers receive a per-message context derived from the
// Subscribe context and bounded by WithMessageTimeout (default 30s).
package natsclient
