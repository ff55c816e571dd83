// Package command provides the gosession CLI command definitions.
//
// It uses urfave/cli/v2. Commands that need an engine load it from the file named by
// --config with the same loader a service uses, so the CLI always sees the keys and
// settings the service sees.
package command
