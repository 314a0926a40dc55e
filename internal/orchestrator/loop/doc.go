// Package loop runs the agent's turn loop: call the model, execute the
// tools it asks for, feed the results back, and repeat until the model
// answers without tools or a stop condition is hit.
//
// # Stop conditions
//
//   - Done: the model replied without tool calls.
//   - BreakMaxIterations: the turn budget ran out while the model was
//     still calling tools.
//   - BreakLoopDetected: the same batch of tool calls (names and
//     arguments) was requested three turns in a row.
//   - Error: the model call failed after retries.
//
// On the two Break outcomes the loop appends SummaryPrompt as a user
// message and makes one more model call with tools disabled, so the user
// gets a summary of what was done. Errors never trigger that call.
//
// # Usage
//
//	l := loop.New(loop.Dependencies{
//	    Client:   client,
//	    History:  sess,
//	    Tools:    registry,
//	    Progress: renderer.Callback(),
//	}, loop.DefaultConfig())
//	stats := l.Run(ctx, "fix the failing test")
package loop
