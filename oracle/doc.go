// Package oracle exposes the LLM capability the engine and trainer consume
// as a small set of typed operations: sentence classification, problem
// canonicalization, strict semantic equivalence, candidate selection,
// dialog-grounded yes/no judgment and sibling routing.
//
// The operations sit on the ChatModel seam, a single-completion interface
// with two backends: an OpenAI-compatible client configured through
// OPENAI_API_KEY / OPENAI_API_BASE_URL / LLM_MODEL, and an adapter over
// langchaingo's llms.Model for every other provider.
//
// Transport failures and timeouts surface as ErrUnavailable; a reply that
// arrives but does not match the expected shape is treated as "unsure" or
// "no candidate" so sessions degrade deterministically instead of failing.
// Stable verdicts (classification, equivalence, canonicalization, solution
// matching) can be cached through the Cache interface, in memory or in
// Redis, which makes training replays stable.
package oracle
