// Package commands holds the handlers behind the tsaotun subcommands and the
// static registry that maps command names to them.
package commands
