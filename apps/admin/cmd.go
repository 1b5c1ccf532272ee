package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/trezcool/campus/core/notification"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sql.DB
	notifier  *notification.Dispatcher
	directory notification.Directory
	stdin     io.Reader
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, up-to N, down, status, ...)")
	fmt.Fprintln(cli.out, "  sweep - deliver the scheduled notifications that are due")
	fmt.Fprintln(cli.out, "  announce -title TITLE [-roles ROLE,...] [-severity SEVERITY] [-link URL] [-sms] - broadcast an announcement; the body is read from stdin")
}

func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "sweep":
		return cli.sweep()
	case "announce":
		return cli.announce(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func usageOf(fs *flag.FlagSet) error {
	fs.Usage()
	return errHelp
}
