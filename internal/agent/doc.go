// Package agent is a small scripted agent used to drive the tracer end to
// end: a session handles intents, an intent fans out into concurrent goal
// pursuits, and each pursuit plans with an LLM client and may call a tool.
package agent
