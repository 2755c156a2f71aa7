// Command hashpass prints an Argon2id hash of a password for use in the
// password_hash field of a user seed file.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/filmkeeper/internal/server/auth"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal reports whether fd is an interactive terminal.
var isTerminal = term.IsTerminal

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("hashpass", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := auth.DefaultHashParams
	memory := fs.Uint("m", uint(def.Memory), "argon2 memory in KiB")
	iterations := fs.Uint("t", uint(def.Iterations), "argon2 iterations")
	parallelism := fs.Uint("p", uint(def.Parallelism), "argon2 parallelism")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *parallelism > 255 {
		return errors.New("parallelism must fit in 8 bits")
	}

	password, err := getPassword(stdin, stderr)
	if err != nil {
		return err
	}

	h := auth.NewPasswordHasher(auth.HashParams{
		Memory:      uint32(*memory),
		Iterations:  uint32(*iterations),
		Parallelism: uint8(*parallelism),
	}, 1)

	encoded, err := h.Hash(ctx, password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, encoded)
	return err
}

// getPassword prompts twice on a terminal; otherwise it reads one line.
func getPassword(stdin *os.File, prompt io.Writer) (string, error) {
	fd := int(stdin.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(prompt, "Enter password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
