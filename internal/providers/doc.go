// Package providers implements the generative reviewers behind the
// Reviewer interface.
//
// [Dify] runs a Dify workflow in blocking mode with the snippet as the
// sql_code input and reads the Markdown report from the workflow outputs.
// [OpenAI] talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, Ollama, LM Studio) with a prompt that asks for a status line
// using the configured approval markers.
//
// Providers make exactly one HTTP call per snippet; there is no retry loop.
// HTTP clients are plain struct fields so tests can point them at httptest
// servers. Use [New] to obtain a Reviewer from configuration.
package providers
