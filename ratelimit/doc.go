// Package ratelimit permits an action for a given key at most once per
// interval.
//
// A Limiter keeps the time of the last accepted action for every key it has
// seen. All decisions, across all keys, are serialized by a single mutex, so
// two callers racing on the same key within one interval never both succeed.
//
//	limiter := ratelimit.New()
//
//	// Announce at most once every 30 seconds per player.
//	limiter.Call(playerID, 30*time.Second, func() {
//		announce(playerID)
//	})
//
//	// Always respond, but tell the caller whether the action was allowed.
//	limiter.CallReporting(ratelimit.NoKey, time.Second, func(ok bool) {
//		if !ok {
//			reply("slow down")
//		}
//	})
//
// Entries are never removed. A Limiter used with unbounded key sets grows
// without bound.
package ratelimit
