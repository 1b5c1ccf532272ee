package main

import (
	"context"
	"errors"
	"fmt"
)

var errNoNotifier = errors.New("notification dispatcher not configured")

// sweep is meant to be triggered by cron.
func (cli *commandLine) sweep() error {
	if cli.notifier == nil {
		return errNoNotifier
	}
	processed := cli.notifier.ProcessScheduledNotifications(context.Background())
	fmt.Fprintf(cli.out, "processed %d scheduled notification(s)\n", processed)
	return nil
}
