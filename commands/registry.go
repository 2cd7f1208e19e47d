package commands

import "github.com/ruffel/tsaotun"

// Registry returns every built-in handler keyed by command name.
func Registry() tsaotun.Registry {
	return tsaotun.NewRegistry(
		Start{},
		Stop{},
		Restart{},
		Exec{},
		Logs{},
		Remove{},
		Inspect{},
		List{},
		Pull{},
		Copy{},
	)
}
