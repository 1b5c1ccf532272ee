package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/trezcool/campus/apps"
	"github.com/trezcool/campus/apps/stack"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/storage/database"
)

var logger *log.Logger

func main() {
	os.Exit(run())
}

func run() int {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	cli := commandLine{stdin: os.Stdin, out: os.Stdout}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		// migrations run on the bare DB: the stack would migrate up on its own
		db, err := database.Open(conf)
		if err != nil {
			logger.Printf("error: %s\n", err)
			return 1
		}
		defer db.Close()
		cli.db = db.DB
	} else {
		deps, err := stack.New(context.Background(), conf, logger)
		if err != nil {
			logger.Printf("error: %s\n", err)
			return 1
		}
		defer deps.Close()
		cli.notifier = deps.Notifier
		cli.directory = deps.Directory
	}

	if err := cli.run(os.Args); err != nil {
		var argErr *apps.ArgumentError
		switch {
		case err == errHelp:
		case errors.As(err, &argErr):
			logger.Printf("\ninvalid arguments: %s\n", argErr)
		default:
			logger.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
