package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// options holds the parsed command line. Zero values mean "not given" so
// they do not override the loaded configuration.
type options struct {
	provider   string
	model      string
	maxTurns   int
	skill      string
	listSkills bool
	noMCP      bool
	yolo       bool
	logLevel   string
	logFile    string
	version    bool
	task       string
}

func parseArgs(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("krim", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.provider, "provider", "", "LLM provider (claude, openai, gemini)")
	fs.StringVar(&opts.provider, "p", "", "shorthand for --provider")
	fs.StringVar(&opts.model, "model", "", "model name (provider default when empty)")
	fs.StringVar(&opts.model, "m", "", "shorthand for --model")
	fs.IntVar(&opts.maxTurns, "max-turns", 0, "maximum model turns per task")
	fs.IntVar(&opts.maxTurns, "t", 0, "shorthand for --max-turns")
	fs.StringVar(&opts.skill, "skill", "", "activate a skill by name")
	fs.StringVar(&opts.skill, "s", "", "shorthand for --skill")
	fs.BoolVar(&opts.listSkills, "list-skills", false, "list available skills and exit")
	fs.BoolVar(&opts.noMCP, "no-mcp", false, "do not start MCP servers")
	fs.BoolVar(&opts.yolo, "yolo", false, "approve commands without asking (deny patterns still apply)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, none)")
	fs.StringVar(&opts.logFile, "log-file", "", "log file path")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: krim [options] [task]\n\n")
		fmt.Fprintln(fs.Output(), "Without a task krim starts an interactive session.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.maxTurns < 0 {
		return nil, fmt.Errorf("--max-turns must be positive, got %d", opts.maxTurns)
	}
	opts.task = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if len(fs.Args()) > 0 && opts.task == "" {
		return nil, errors.New("task must not be empty")
	}
	return opts, nil
}
