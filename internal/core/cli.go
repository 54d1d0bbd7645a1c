package core

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// Commands understood by the studyhub client.
const (
	CmdRegister = "register"
	CmdLogin    = "login"
	CmdLogout   = "logout"
	CmdList     = "list"
	CmdUpload   = "upload"
	CmdDownload = "download"
)

const DefaultServer = "http://localhost:3000"

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

type ParsedPath struct {
	FullPath string
	Kind     PathKind
}

// Invocation is a fully parsed command line.
type Invocation struct {
	Server  string
	Command string

	// upload
	Paths  []ParsedPath
	Bundle bool

	// download
	FileID string
	Dest   string
}

// ParseArgs parses "[-server URL] <command> [args...]".
func ParseArgs(args []string, defaultServer string) (*Invocation, error) {
	inv := &Invocation{}

	fs := flag.NewFlagSet("studyhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&inv.Server, "server", defaultServer, "StudyHub server URL")
	if err := fs.Parse(args); err != nil {
		return nil, &ValidationError{Arg: "<flags>", Cause: err.Error()}
	}

	if err := validateServer(inv.Server); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return nil, &ValidationError{Arg: "<command>", Cause: "no command provided"}
	}
	inv.Command, rest = rest[0], rest[1:]

	switch inv.Command {
	case CmdRegister, CmdLogin, CmdLogout, CmdList:
		if len(rest) > 0 {
			return nil, &ValidationError{Arg: rest[0], Cause: "unexpected argument"}
		}

	case CmdUpload:
		ufs := flag.NewFlagSet(CmdUpload, flag.ContinueOnError)
		ufs.SetOutput(io.Discard)
		ufs.BoolVar(&inv.Bundle, "bundle", false, "pack all paths into a single archive")
		if err := ufs.Parse(rest); err != nil {
			return nil, &ValidationError{Arg: "<flags>", Cause: err.Error()}
		}
		paths, err := ParsePaths(ufs.Args())
		if err != nil {
			return nil, err
		}
		inv.Paths = paths

	case CmdDownload:
		if len(rest) == 0 || len(rest) > 2 {
			return nil, &ValidationError{Arg: "<id>", Cause: "usage: download <id> [dest]"}
		}
		inv.FileID = rest[0]
		if len(rest) == 2 {
			inv.Dest = rest[1]
		}

	default:
		return nil, &ValidationError{Arg: inv.Command, Cause: "unknown command"}
	}

	return inv, nil
}

// ParsePaths checks that every argument exists and records whether it is a
// file or a directory.
func ParsePaths(args []string) ([]ParsedPath, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<files>", Cause: "no files provided"}
	}

	var out []ParsedPath

	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}

		kind := PathFile
		if info.IsDir() {
			kind = PathDir
		}

		out = append(out, ParsedPath{FullPath: p, Kind: kind})
	}

	return out, nil
}

func validateServer(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Arg: raw, Cause: "server must be an http(s) URL"}
	}
	return nil
}
