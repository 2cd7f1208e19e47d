package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/ruffel/tsaotun"
)

// Inspect prints a container's low-level details as indented JSON.
type Inspect struct{ targetsContainer }

func (Inspect) Name() string { return "inspect" }

func (Inspect) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	id, err := engine.ResolveContainer(args.String(tsaotun.ArgContainer))
	if err != nil {
		return "", err
	}

	info, err := engine.API().ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", id, err)
	}

	out, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", id, err)
	}

	return string(out), nil
}

// List renders containers as a table. Stopped containers are included when
// the "all" argument is set.
type List struct {
	now func() time.Time
}

func (List) Name() string { return "ps" }

func (l List) Run(ctx context.Context, args tsaotun.Arguments, engine *tsaotun.Engine) (string, error) {
	containers, err := engine.API().ContainerList(ctx, container.ListOptions{All: args.Bool(tsaotun.ArgAll)})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	now := time.Now
	if l.now != nil {
		now = l.now
	}

	return renderContainers(containers, now()), nil
}

func renderContainers(containers []container.Summary, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"CONTAINER ID", "IMAGE", "COMMAND", "CREATED", "STATUS", "NAMES"})

	for _, c := range containers {
		tw.AppendRow(table.Row{
			shortID(c.ID),
			c.Image,
			quoteCommand(c.Command),
			humanize.RelTime(time.Unix(c.Created, 0), now, "ago", "from now"),
			c.Status,
			strings.Join(trimNames(c.Names), ","),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 24, WidthMaxEnforcer: text.Trim},
	})

	return tw.Render()
}

func quoteCommand(cmd string) string {
	return `"` + cmd + `"`
}

// trimNames drops the leading slash the daemon puts on container names.
func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.TrimPrefix(n, "/"))
	}

	return out
}
