package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/campus/apps"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

var isTerminalFunc = term.IsTerminal // mockable

func (cli *commandLine) announce(args []string) error {
	announceCmd := flag.NewFlagSet("announce", flag.ContinueOnError)
	announceCmd.SetOutput(cli.out)
	title := announceCmd.String("title", "", "The announcement title. The body will be prompted next, or read from a pipe.")
	roles := announceCmd.String("roles", "", "Comma-separated recipient roles (student, teacher, staff, admin). Everyone when empty.")
	severity := announceCmd.String("severity", string(notification.SeverityInfo), "info, success, warning or error")
	link := announceCmd.String("link", "", "Optional action link of the in-app notification")
	sendSMS := announceCmd.Bool("sms", false, "Also send an SMS to recipients with a phone number")

	if err := announceCmd.Parse(args); err != nil {
		return errHelp
	}
	if strings.TrimSpace(*title) == "" {
		return usageOf(announceCmd)
	}
	if cli.notifier == nil || cli.directory == nil {
		return errNoNotifier
	}

	body, err := cli.readBody()
	if err != nil {
		return errors.Wrap(err, "reading announcement body")
	}
	if body == "" {
		return usageOf(announceCmd)
	}

	an := notification.Announcement{
		Title:      strings.TrimSpace(*title),
		Body:       body,
		Severity:   notification.Severity(*severity),
		ActionLink: *link,
		Roles:      splitRoles(*roles),
		SendSMS:    *sendSMS,
	}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	if err = validate.Struct(an); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, vErr := range vErrs {
				msgs = append(msgs, vErr.Field()+": "+vErr.Translate(translator))
			}
			return apps.NewArgumentError(strings.Join(msgs, "; "))
		}
		return err
	}

	ctx := context.Background()
	recipients, err := cli.directory.Contacts(ctx, an.Roles)
	if err != nil {
		return errors.Wrap(err, "resolving recipients")
	}
	res := cli.notifier.BroadcastAnnouncement(ctx, an, recipients)
	fmt.Fprintf(cli.out, "announcement sent: %d recipient(s), %d delivered, %d failed\n", res.Recipients, res.Delivered, res.Failed)
	return nil
}

// readBody prompts for one line on a terminal, or reads the whole of a piped stdin.
func (cli *commandLine) readBody() (string, error) {
	in := cli.stdin
	if in == nil {
		in = os.Stdin
	}

	if f, ok := in.(*os.File); ok && isTerminalFunc(int(f.Fd())) {
		fmt.Fprint(cli.out, "Enter body:")
		line, err := bufio.NewReader(in).ReadString('\n')
		fmt.Fprintln(cli.out)
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	raw, err := ioutil.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
