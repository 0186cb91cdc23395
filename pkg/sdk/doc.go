// Package aigate provides an embedded Go client for the aigate request
// dispatcher and hybrid retrieval engine, backed by Redis.
//
// The client wires the full pipeline in-process: quota ledger, response
// cache, tier-aware provider routing with fallback, and the lexical +
// vector search indexes.
//
//	client, _ := aigate.New(ctx,
//	    aigate.WithRedis("localhost:6379", ""),
//	    aigate.WithPrimary(aigate.ProviderSettings{
//	        APIKey:    os.Getenv("OPENAI_API_KEY"),
//	        ChatModel: "gpt-4o-mini",
//	    }),
//	)
//	defer client.Close()
//
//	resp, _ := client.Dispatch(ctx, aigate.DispatchRequest{
//	    UserID:  "u1",
//	    Tier:    "pro",
//	    Type:    "chat",
//	    Content: "summarize the quarterly report",
//	})
//
// Requests from free-tier users degrade to a local responder instead of
// failing when providers are down or the daily quota is spent; check
// Degraded on the response.
package aigate
