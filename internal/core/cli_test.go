package core

import (
	"os"
	"path/filepath"
	"testing"
)

func assertValidationError(t *testing.T, err error, expectedArg string, expectedCause string) {
	t.Helper()
	validationErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if expectedArg != "" && validationErr.Arg != expectedArg {
		t.Errorf("expected Arg to be %q, got %q", expectedArg, validationErr.Arg)
	}
	if expectedCause != "" && validationErr.Cause != expectedCause {
		t.Errorf("expected Cause to be %q, got %q", expectedCause, validationErr.Cause)
	}
}

func TestParseArgs(t *testing.T) {
	t.Run("simple commands", func(t *testing.T) {
		for _, cmd := range []string{CmdRegister, CmdLogin, CmdLogout, CmdList} {
			inv, err := ParseArgs([]string{cmd}, DefaultServer)
			if err != nil {
				t.Fatalf("%s: expected no error, got %v", cmd, err)
			}
			if inv.Command != cmd || inv.Server != DefaultServer {
				t.Errorf("%s: unexpected invocation %+v", cmd, inv)
			}
		}
	})

	t.Run("server flag", func(t *testing.T) {
		inv, err := ParseArgs([]string{"-server", "https://notes.example.edu", "list"}, DefaultServer)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if inv.Server != "https://notes.example.edu" {
			t.Errorf("expected custom server, got %s", inv.Server)
		}
	})

	t.Run("invalid server", func(t *testing.T) {
		_, err := ParseArgs([]string{"-server", "ftp://x", "list"}, DefaultServer)
		assertValidationError(t, err, "ftp://x", "server must be an http(s) URL")
	})

	t.Run("no command", func(t *testing.T) {
		_, err := ParseArgs(nil, DefaultServer)
		assertValidationError(t, err, "<command>", "no command provided")
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := ParseArgs([]string{"share"}, DefaultServer)
		assertValidationError(t, err, "share", "unknown command")
	})

	t.Run("extra argument", func(t *testing.T) {
		_, err := ParseArgs([]string{"list", "now"}, DefaultServer)
		assertValidationError(t, err, "now", "unexpected argument")
	})

	t.Run("upload", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "notes.txt")
		os.WriteFile(file, []byte("x"), 0644)

		inv, err := ParseArgs([]string{"upload", "-bundle", file, dir}, DefaultServer)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !inv.Bundle {
			t.Error("expected bundle flag to be set")
		}
		if len(inv.Paths) != 2 || inv.Paths[0].Kind != PathFile || inv.Paths[1].Kind != PathDir {
			t.Errorf("unexpected paths: %+v", inv.Paths)
		}
	})

	t.Run("upload without paths", func(t *testing.T) {
		_, err := ParseArgs([]string{"upload"}, DefaultServer)
		assertValidationError(t, err, "<files>", "no files provided")
	})

	t.Run("download", func(t *testing.T) {
		inv, err := ParseArgs([]string{"download", "abc", "out/"}, DefaultServer)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if inv.FileID != "abc" || inv.Dest != "out/" {
			t.Errorf("unexpected invocation: %+v", inv)
		}

		_, err = ParseArgs([]string{"download"}, DefaultServer)
		assertValidationError(t, err, "<id>", "usage: download <id> [dest]")
	})
}

func TestParsePaths(t *testing.T) {
	t.Run("file and directory", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "a.txt")
		if err := os.WriteFile(file, []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}

		result, err := ParsePaths([]string{file, dir})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result[0].FullPath != file || result[0].Kind != PathFile {
			t.Errorf("unexpected first path: %+v", result[0])
		}
		if result[1].FullPath != dir || result[1].Kind != PathDir {
			t.Errorf("unexpected second path: %+v", result[1])
		}
	})

	t.Run("cleans paths", func(t *testing.T) {
		dir := t.TempDir()
		result, err := ParsePaths([]string{dir + "/./"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result[0].FullPath != filepath.Clean(dir) {
			t.Errorf("expected cleaned path %s, got %s", filepath.Clean(dir), result[0].FullPath)
		}
	})

	t.Run("nonexistent path", func(t *testing.T) {
		result, err := ParsePaths([]string{"/nonexistent/path/file.txt"})
		if result != nil {
			t.Error("expected nil result")
		}
		assertValidationError(t, err, "/nonexistent/path/file.txt", "not found or not accessible")
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Arg: "test.txt", Cause: "file not found"}
	expected := `invalid argument "test.txt": file not found`
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
