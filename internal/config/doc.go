// Package config handles configuration loading and validation from
// environment variables and optional yaml files. It provides type-safe
// access to the settings needed by the server, the database layer, the
// reference service client, and the task runner.
package config
