// Package locritchat provides a streaming chat client for Locrit agents.
//
// Locrits are remote conversational agents addressable by name. The client
// multiplexes concurrent conversations over a single persistent WebSocket
// connection, reassembles token-by-token streamed responses, and transparently
// falls back to a synchronous HTTP request/response channel whenever the
// streaming path is unavailable or fails mid-flight.
//
// # Thread Safety
//
// [Client] is safe for concurrent use by multiple goroutines. Handler
// callbacks for one correlation id are invoked sequentially from the
// connection's read loop; keep them fast or hand off to your own goroutine.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	client, err := locritchat.Connect(ctx,
//	    "wss://locrits.example.com/ws",
//	    "https://locrits.example.com",
//	    apiKey,
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Send("sage", "hello", locritchat.Handlers{
//	    OnChunk: func(delta string, ts time.Time) {
//	        fmt.Print(delta)
//	    },
//	    OnComplete: func(text string, ts time.Time) {
//	        fmt.Println()
//	    },
//	    OnError: func(err error) {
//	        log.Printf("send failed: %v", err)
//	    },
//	})
//
// Exactly one of OnComplete or OnError fires per Send, and OnChunk fires zero
// or more times strictly before it. Streaming failures are absorbed: the same
// send is retried once over the synchronous channel, so OnError only reports
// exhaustion of both paths.
//
// # Observability
//
// Use [WithLogger], [WithOnSend], [WithOnReceive] and [WithOnStateChange] to
// add logging and monitoring to the client:
//
//	client, err := locritchat.Connect(ctx, wsURL, chatURL, apiKey,
//	    locritchat.WithLogger(slog.Default()),
//	    locritchat.WithOnStateChange(func(s locritchat.ConnectionState) {
//	        metrics.ConnState.Set(s)
//	    }),
//	)
package locritchat
