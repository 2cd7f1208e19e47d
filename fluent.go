package tsaotun

// Builder provides a fluent API for constructing CommandRequests.
type Builder struct {
	req CommandRequest
}

// Request creates a new Builder for the named command.
func Request(name string) *Builder {
	return &Builder{
		req: CommandRequest{
			Name:      name,
			Arguments: Arguments{},
		},
	}
}

// Arg sets a single argument. Nil values are skipped.
func (b *Builder) Arg(key string, value any) *Builder {
	if value != nil {
		b.req.Arguments[key] = value
	}

	return b
}

// Args copies every entry of args.
func (b *Builder) Args(args Arguments) *Builder {
	for k, v := range args {
		b.Arg(k, v)
	}

	return b
}

// Container sets the target container.
func (b *Builder) Container(id string) *Builder {
	if id != "" {
		b.req.Arguments[ArgContainer] = id
	}

	return b
}

// Path sets the working path inside the container.
func (b *Builder) Path(path string) *Builder {
	if path != "" {
		b.req.Arguments[ArgPath] = path
	}

	return b
}

// Prerequisite forces the prerequisite step.
func (b *Builder) Prerequisite() *Builder {
	b.req.RequiresPrerequisite = true

	return b
}

// Build returns the constructed CommandRequest.
func (b *Builder) Build() CommandRequest {
	return b.req
}
