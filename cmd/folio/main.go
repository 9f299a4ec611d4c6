package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"folio/internal/cli"
	"folio/internal/gui"
	"folio/pkg/source"
	"folio/pkg/viewer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	c := cli.New("folio", "A PDF page viewer")
	c.Add(cli.Command{
		Name:    "open",
		Args:    "[file.pdf|url|query]",
		Summary: "Open the viewer window",
		Run:     runOpen,
	})

	// If it looks like a PDF or a query string, open the viewer.
	c.Fallback = func(ctx context.Context, env *cli.Env, args []string) (bool, error) {
		arg := strings.ToLower(args[0])
		if strings.HasSuffix(arg, ".pdf") || strings.Contains(arg, "file=") || strings.Contains(arg, "pdf=") {
			return true, runOpen(ctx, env, args)
		}
		return false, nil
	}

	code := c.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runOpen(_ context.Context, env *cli.Env, args []string) error {
	p := viewer.ParseQuery("")
	if len(args) > 0 {
		p = paramsFor(args[0])
	}

	src := source.NewFitz(source.WithSourceLogger(env.Logger))
	gui.NewApp(src, gui.WithLogger(env.Logger)).Run(p)
	return nil
}

// paramsFor reads a query string or URL carrying file=/pdf=, or a bare path.
func paramsFor(arg string) viewer.Params {
	if strings.Contains(arg, "file=") || strings.Contains(arg, "pdf=") {
		return viewer.ParseQuery(arg)
	}
	return viewer.NewParams(arg, "")
}
