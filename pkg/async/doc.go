// Package async provides the background unit of work used by the
// authentication and enrollment flows: a generic Future started with Run,
// carrying exactly one terminal result.
//
// The contract is deliberately narrow. Each flow attempt is one Future;
// there is no fan-out, no retry, and no result mutation after completion.
// Callers that stop caring can simply drop the Future — the goroutine
// finishes, delivers into the Future, and everything is collected.
package async
