package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           llm-worker API
// @version         1.0
// @description     HTTP API for local LLM inference with streaming chat sessions.
//
// @contact.name   llm-worker maintainers
// @contact.url    https://github.com/appunni/llm-ts-worker
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
