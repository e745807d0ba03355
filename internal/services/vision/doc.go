// Package vision talks to a vision-language model over an OpenAI-compatible
// chat completions endpoint.
//
// Describe encodes one image as a base64 data URI, sends it together with a
// fixed prompt, and returns the model's free-text answer. The client always
// carries a finite HTTP timeout and retries transient failures (408, 429,
// 5xx, network timeouts and empty answers) with capped exponential backoff.
// Every error it returns is marked with services.ErrInference so callers can
// classify it with errors.Is.
//
// The default endpoint is a local Ollama server; any provider that speaks the
// same schema (OpenRouter, vLLM, LM Studio) works by changing the base URL and
// supplying an API key.
package vision
