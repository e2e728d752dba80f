// Package redact scrubs snippets before they leave the machine.
//
// [PII] masks resident registration numbers, mobile phone numbers and email
// local parts; it always runs and is idempotent. [Secrets] applies regex
// heuristics for credentials (IDENTIFIED BY clauses, connection URLs with
// inline passwords, API keys, tokens, private keys). Files whose paths match
// a configured glob are replaced wholesale. [Mask] composes all three.
package redact
