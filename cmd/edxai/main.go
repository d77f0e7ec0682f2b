// Command edxai serves the tool protocol and workflow endpoints for Open edX AI extensions.
package main

import (
	"os"
	"strings"

	"github.com/effective-security/xlog"
	"github.com/jessevdk/go-flags"
)

// Version is set at build time
var Version = "dev"

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "cmd")

// Options is the root of the CLI
type Options struct {
	Config   string `short:"c" long:"cfg" description:"service configuration file" default:"edxai.yaml" env:"EDXAI_CONFIG"`
	LogLevel string `long:"log-level" description:"DEBUG|INFO|NOTICE|WARNING|ERROR" default:"INFO"`

	Serve    ServeCmd    `command:"serve" description:"Start the HTTP server"`
	Tools    ToolsCmd    `command:"tools" description:"List tools"`
	Call     CallCmd     `command:"call" description:"Call a tool"`
	Workflow WorkflowCmd `command:"workflow" description:"Run a workflow action"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLogging(opts.LogLevel)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func setupLogging(level string) {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	switch strings.ToUpper(level) {
	case "DEBUG":
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	case "NOTICE":
		xlog.SetGlobalLogLevel(xlog.NOTICE)
	case "WARNING":
		xlog.SetGlobalLogLevel(xlog.WARNING)
	case "ERROR":
		xlog.SetGlobalLogLevel(xlog.ERROR)
	default:
		xlog.SetGlobalLogLevel(xlog.INFO)
	}
}
