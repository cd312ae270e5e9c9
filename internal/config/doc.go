// Package config loads, normalizes, and validates boardwatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and layers environment overrides on top:
// a .env file is loaded when present and BOARDWATCH_* variables replace
// scalar keys (BOARDWATCH_LLM_API_KEY overrides llm.api_key). The Config type
// centralizes every knob the scheduler, pipeline, and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
