// Package cli implements the folio command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Env is what a command runs against.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Command is one subcommand.
type Command struct {
	Name    string
	Args    string
	Summary string

	// Run executes the command with the arguments after its name.
	Run func(ctx context.Context, env *Env, args []string) error
}

// errUsage makes Run print the command usage.
var errUsage = errors.New("invalid usage")

// CLI dispatches subcommands.
type CLI struct {
	name     string
	tagline  string
	commands []Command

	// Fallback handles a first argument that is not a command, if set.
	Fallback func(ctx context.Context, env *Env, args []string) (bool, error)
}

// New creates a command line with the info, layout and render commands.
func New(name, tagline string) *CLI {
	c := &CLI{name: name, tagline: tagline}
	c.Add(infoCommand())
	c.Add(layoutCommand())
	c.Add(renderCommand())
	return c
}

// Add registers a command.
func (c *CLI) Add(cmd Command) {
	c.commands = append(c.commands, cmd)
}

func (c *CLI) lookup(name string) (Command, bool) {
	for _, cmd := range c.commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return Command{}, false
}

// Run executes args (without the program name) and returns the exit code.
func (c *CLI) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	verbose := false
	for len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		verbose = true
		args = args[1:]
	}

	env := &Env{Stdout: stdout, Stderr: stderr, Logger: newLogger(stderr, verbose)}

	if len(args) == 0 {
		c.printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "help", "-h", "--help":
		c.printUsage(stdout)
		return 0
	}

	cmd, ok := c.lookup(args[0])
	if !ok {
		if c.Fallback != nil {
			handled, err := c.Fallback(ctx, env, args)
			if handled {
				return c.exit(env, Command{}, err)
			}
		}
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		c.printUsage(stderr)
		return 1
	}

	return c.exit(env, cmd, cmd.Run(ctx, env, args[1:]))
}

func (c *CLI) exit(env *Env, cmd Command, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(env.Stderr, "Usage: %s %s %s\n", c.name, cmd.Name, cmd.Args)
	case errors.Is(err, flag.ErrHelp):
		return 0
	default:
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
	}
	return 1
}

func (c *CLI) printUsage(w io.Writer) {
	fmt.Fprint(w, `
  ███████╗ ██████╗ ██╗     ██╗ ██████╗
  ██╔════╝██╔═══██╗██║     ██║██╔═══██╗
  █████╗  ██║   ██║██║     ██║██║   ██║
  ██╔══╝  ██║   ██║██║     ██║██║   ██║
  ██║     ╚██████╔╝███████╗██║╚██████╔╝
  ╚═╝      ╚═════╝ ╚══════╝╚═╝ ╚═════╝
`)
	fmt.Fprintf(w, "\n  %s\n\nUsage:\n  %s [-v] <command> [arguments]\n\nCommands:\n", c.tagline, c.name)
	for _, cmd := range c.commands {
		fmt.Fprintf(w, "  %-36s %s\n", strings.TrimSpace(cmd.Name+" "+cmd.Args), cmd.Summary)
	}
	fmt.Fprintf(w, "  %-36s %s\n", "help", "Show this help")
	fmt.Fprintf(w, "\nExamples:\n  %s info document.pdf\n  %s layout 1280 800 -ratio 1.414\n  %s render document.pdf -o page2.png -p 2 -w 1200\n",
		c.name, c.name, c.name)
}

// newLogger logs text to w, with debug output when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseArgs splits leading positional arguments from flags so both
// "render doc.pdf -p 2" and "render -p 2 doc.pdf" work.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		pos = append(pos, args[0])
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return append(pos, fs.Args()...), nil
}

func newFlagSet(env *Env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	return fs
}
