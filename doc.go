/*
Package ledgerchat runs chat conversations as short, deterministic flows over
a ledger service.

A channel (a chat, a phone number, a console) owns one session. A session
holds the member's dashboard as last reported by the ledger, the outcome of
the last operation, and at most one flow in progress. A flow is an ordered
list of steps and each step is bound to one component: inputs validate what
the user typed, displays page through the dashboard.

# Concept

The engine reads the session, feeds the message to the current step's
component and either re-prompts, moves to the next step or completes the flow.
Completed flows are submitted upstream and the response is merged back into
the session in a single write. Sessions live behind ports.Cache, so the same
engine runs over memory, files or Redis.

# Usage

	eng := ledgerchat.New(
		ledgerchat.WithUpstream(client),
		ledgerchat.WithSerialize(),
	)

	res, err := eng.Handle(ctx, "channel-1", "offer")
	if err != nil {
		// already reported; res.Message is safe to show
	}
	fmt.Println(ledgerchat.Markdown(res))

# Concurrency

By default concurrent messages on one channel race and the last write wins.
WithSerialize orders them within a process and WithLocker across processes.
*/
package ledgerchat
