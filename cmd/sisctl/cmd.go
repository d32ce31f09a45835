package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/term"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/app"
	"studentinfo/sis-console/internal/guard"
	"studentinfo/sis-console/internal/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	console *app.Console
	out     io.Writer
	in      int
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME [-redirect PATH] - log in, the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                                   - end the session")
	fmt.Fprintln(cli.out, "  whoami                                   - show the current session")
	fmt.Fprintln(cli.out, "  navigate -path PATH                      - run the navigation guard for PATH")
	fmt.Fprintln(cli.out, "  menu                                     - list the menus the session may open")
	fmt.Fprintln(cli.out, "  get -path PATH [-query K=V&..] [-out FILE] - call the SIS API")
	fmt.Fprintln(cli.out, "  audit [-n COUNT]                         - print the latest session audit events")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	defer cli.flushToasts()

	switch args[1] {
	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		username := fs.String("username", "", "The username. The password will be prompted next.")
		redirect := fs.String("redirect", "", "Where to go after login.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *username == "" {
			fs.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(cli.in)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			fs.Usage()
			return errHelp
		}
		if err := cli.console.Session.Login(ctx, session.LoginCredentials{Username: *username, Password: string(pwd)}, *redirect); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "logged in, location %s\n", cli.console.History.Current())
		return nil

	case "logout":
		if err := cli.console.Session.EnsureRestored(ctx); err != nil {
			return err
		}
		return cli.console.Session.Logout(ctx)

	case "whoami":
		if err := cli.console.Session.EnsureRestored(ctx); err != nil {
			return err
		}
		return cli.printJSON(cli.console.Session.Snapshot())

	case "navigate":
		fs := flag.NewFlagSet("navigate", flag.ContinueOnError)
		target := fs.String("path", "", "The route to open.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *target == "" {
			fs.Usage()
			return errHelp
		}
		d := cli.console.Guard.Resolve(ctx, *target)
		return cli.printJSON(d)

	case "menu":
		if err := cli.console.Session.EnsureRestored(ctx); err != nil {
			return err
		}
		return cli.printJSON(guard.AccessibleMenus(cli.console.Guard.Table().Routes(), cli.console.Session))

	case "get":
		fs := flag.NewFlagSet("get", flag.ContinueOnError)
		target := fs.String("path", "", "API path, relative to the base url.")
		query := fs.String("query", "", "Query string, e.g. page=1&size=20.")
		outFile := fs.String("out", "", "Write a file download here.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *target == "" {
			fs.Usage()
			return errHelp
		}
		return cli.get(ctx, *target, *query, *outFile)

	case "audit":
		fs := flag.NewFlagSet("audit", flag.ContinueOnError)
		count := fs.Int("n", 20, "How many events to print, newest last.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *count <= 0 {
			fs.Usage()
			return errHelp
		}
		events, err := cli.console.Audit.ReadAll()
		if err != nil {
			return err
		}
		if len(events) > *count {
			events = events[len(events)-*count:]
		}
		for _, e := range events {
			fmt.Fprintf(cli.out, "%s %-16s %-8s %s %s\n", e.At, e.Action, e.Outcome, e.Actor, e.Target)
		}
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) get(ctx context.Context, target, rawQuery, outFile string) error {
	if err := cli.console.Session.EnsureRestored(ctx); err != nil {
		return err
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	opts := apiclient.RequestOptions{Params: params, SkipErrorHandler: true}
	if outFile != "" {
		opts.ResponseType = apiclient.ResponseBinary
	}
	resp, err := cli.console.Client.Send(ctx, http.MethodGet, target, opts)
	if err != nil {
		return errors.New(apiclient.MessageOf(err, "Request failed"))
	}
	if resp.Raw != nil {
		if outFile == "" {
			_, err := cli.out.Write(resp.Raw.Body)
			return err
		}
		if err := os.WriteFile(outFile, resp.Raw.Body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outFile, err)
		}
		fmt.Fprintf(cli.out, "saved %d bytes to %s\n", len(resp.Raw.Body), outFile)
		return nil
	}
	return cli.printJSON(resp.Envelope)
}

func (cli *commandLine) printJSON(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *commandLine) flushToasts() {
	for _, t := range cli.console.Toasts.Drain() {
		fmt.Fprintf(cli.out, "[%s] %s\n", t.Level, t.Message)
	}
}
