package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"studyhub/internal/client"
	"studyhub/internal/core"
)

const usage = `usage: studyhub [-server URL] <command> [args]

commands:
  register                     create an account
  login                        start a session
  logout                       end the session
  list                         list uploaded files
  upload [-bundle] <paths...>  upload files; directories are sent as .zip
  download <id> [dest]         download a file
`

func main() {
	defaultServer := os.Getenv("STUDYHUB_SERVER")
	if defaultServer == "" {
		defaultServer = core.DefaultServer
	}

	inv, err := core.ParseArgs(os.Args[1:], defaultServer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, usage)
		os.Exit(2)
	}

	tokenPath, err := client.DefaultTokenPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(inv.Server, client.NewTokenFile(tokenPath))
	if err := run(ctx, c, inv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, inv *core.Invocation) error {
	prompt := client.NewPrompter(os.Stdin, os.Stderr)

	switch inv.Command {
	case core.CmdRegister:
		name, err := prompt.Line("Name")
		if err != nil {
			return err
		}
		email, err := prompt.Line("Email")
		if err != nil {
			return err
		}
		password, err := prompt.Password("Password")
		if err != nil {
			return err
		}
		id, err := c.Register(ctx, name, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Registered %s (id %s)\n", email, id)

	case core.CmdLogin:
		email, err := prompt.Line("Email")
		if err != nil {
			return err
		}
		password, err := prompt.Password("Password")
		if err != nil {
			return err
		}
		if err := c.Login(ctx, email, password); err != nil {
			return err
		}
		fmt.Println("✓ Logged in")

	case core.CmdLogout:
		if err := c.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("✓ Logged out")

	case core.CmdList:
		files, err := c.List(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files uploaded yet.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPLOADED")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.ID, f.OriginalName, f.Size, f.UploadedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()

	case core.CmdUpload:
		payloads, err := core.NewPayloads(inv.Paths, inv.Bundle)
		if err != nil {
			return err
		}
		for _, p := range payloads {
			rec, err := c.Upload(ctx, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			fmt.Printf("✓ Uploaded %s (%d bytes) as %s\n", p.Name, rec.Size, rec.ID)
		}

	case core.CmdDownload:
		path, err := c.Download(ctx, inv.FileID, inv.Dest)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Saved %s\n", path)
	}

	return nil
}
