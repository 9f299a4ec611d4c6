package cli

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"folio/pkg/layout"
	"folio/pkg/source"
	"folio/pkg/surface"
	"folio/pkg/viewer"
)

func infoCommand() Command {
	return Command{
		Name:    "info",
		Args:    "<file.pdf|url>",
		Summary: "Show page count and page sizes",
		Run:     runInfo,
	}
}

func runInfo(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "info")
	all := fs.Bool("all", false, "list every page size")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}

	info, err := source.InspectURL(ctx, nil, pos[0])
	if err != nil {
		return err
	}

	w := env.Stdout
	fmt.Fprintf(w, "File: %s\n", pos[0])
	fmt.Fprintln(w, "────────────────────────────────────────")
	fmt.Fprintf(w, "Pages: %d\n", info.PageCount)

	if first, ok := info.First(); ok {
		fmt.Fprintln(w, "\nFirst Page:")
		printSize(w, first)
		fmt.Fprintf(w, "  Aspect ratio: %.4f\n", first.AspectRatio())
	}

	if *all {
		fmt.Fprintln(w, "\nPages:")
		for i, s := range info.Pages {
			fmt.Fprintf(w, "%4d: %.2f × %.2f\n", i+1, s.Width, s.Height)
		}
	}
	return nil
}

func printSize(w io.Writer, s source.Size) {
	fmt.Fprintf(w, "  Size: %.2f × %.2f points (%.2f × %.2f inches)\n",
		s.Width, s.Height, s.Width/72, s.Height/72)
}

func layoutCommand() Command {
	return Command{
		Name:    "layout",
		Args:    "<width> <height> [options]",
		Summary: "Compute the fitted page size for a container",
		Run:     runLayout,
	}
}

func runLayout(_ context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "layout")
	chrome := fs.Float64("chrome", 0, "height of the surrounding chrome")
	ratio := fs.Float64("ratio", layout.DefaultAspectRatio, "page aspect ratio (height / width)")
	variant := fs.String("variant", "canvas", "layout variant: canvas, page or spread")
	viewport := fs.Float64("viewport", 0, "viewport height (default: container height)")
	fullscreen := fs.Bool("fullscreen", false, "lay out against the viewport")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errUsage
	}

	width, err := strconv.ParseFloat(pos[0], 64)
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", pos[0], err)
	}
	height, err := strconv.ParseFloat(pos[1], 64)
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", pos[1], err)
	}

	cfg, err := variantConfig(*variant)
	if err != nil {
		return err
	}

	ct := layout.Container{
		Width:          width,
		Height:         height,
		ViewportHeight: height,
		ChromeHeight:   *chrome,
		Fullscreen:     *fullscreen,
	}
	if *viewport > 0 {
		ct.ViewportHeight = *viewport
	}

	size := cfg.ComputeSize(ct, *ratio)
	fmt.Fprintf(env.Stdout, "%gx%g\n", size.Width, size.Height)
	return nil
}

func variantConfig(name string) (layout.Config, error) {
	cfg, ok := layout.Variant(name)
	if !ok {
		return layout.Config{}, fmt.Errorf("unknown layout variant %q", name)
	}
	return cfg, nil
}

func renderCommand() Command {
	return Command{
		Name:    "render",
		Args:    "<file.pdf|url> [options]",
		Summary: "Render a page as the viewer would, to PNG",
		Run:     runRender,
	}
}

func runRender(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "render")
	output := fs.String("o", "output.png", "output file")
	page := fs.Int("p", 1, "page number, 1-indexed")
	width := fs.Float64("w", 1024, "container width")
	height := fs.Float64("h", 768, "container height")
	chrome := fs.Float64("chrome", 0, "height of the surrounding chrome")
	ratio := fs.Float64("dpr", 1, "device pixel ratio")
	variant := fs.String("variant", "canvas", "layout variant: canvas, page or spread")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}

	cfg, err := variantConfig(*variant)
	if err != nil {
		return err
	}

	geom := viewer.StaticGeometry{
		Box: layout.Container{
			Width:          *width,
			Height:         *height,
			ViewportHeight: *height,
			ChromeHeight:   *chrome,
		},
		Ratio: *ratio,
	}

	src := source.NewFitz(source.WithSourceLogger(env.Logger))
	frame, err := renderPage(ctx, env, src, geom, cfg, pos[0], *page)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(*output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, frame.Image); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	b := frame.Image.Bounds()
	fmt.Fprintf(env.Stdout, "Saved %s (%dx%d pixels, %gx%g logical)\n", *output, b.Dx(), b.Dy(), frame.Width, frame.Height)
	return nil
}

// renderPage drives a headless viewer to page and returns the presented
// frame.
func renderPage(ctx context.Context, env *Env, src source.Source, geom viewer.Geometry, cfg layout.Config, file string, page int) (surface.Frame, error) {
	progress := newProgress(env.Stderr)
	v := viewer.New(src, geom, progress,
		viewer.WithLayout(cfg),
		viewer.WithLogger(env.Logger),
		viewer.WithDefer(func(fn func()) { fn() }),
	)
	defer v.Close()

	var lastErr error
	v.Scheduler().OnSettled(func(_ viewer.Result, err error) {
		lastErr = err
	})

	if err := v.Open(ctx, viewer.NewParams(file, "")); err != nil {
		return surface.Frame{}, err
	}
	v.Wait()
	progress.done()

	st := v.State()
	if page < 1 || page > st.PageCount {
		return surface.Frame{}, fmt.Errorf("page %d out of range (1-%d)", page, st.PageCount)
	}

	if page != st.CurrentPage {
		task, ok := v.Navigator().GoToPage(ctx, page-st.CurrentPage)
		if !ok {
			return surface.Frame{}, fmt.Errorf("failed to start render of page %d", page)
		}
		if _, err := task.Wait(); err != nil {
			return surface.Frame{}, err
		}
		progress.done()
	} else if lastErr != nil {
		return surface.Frame{}, lastErr
	}

	frame := v.Surface().Frame()
	if frame.Empty() {
		return surface.Frame{}, fmt.Errorf("failed to render page %d", page)
	}
	return frame, nil
}
