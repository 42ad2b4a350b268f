//go:build windows

package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// exit keeps the console open until a key is pressed, since archives are often dropped onto the executable from
// Explorer.
func exit(err error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if code := exitCode(err); code != 0 {
			_, _ = fmt.Fprintf(os.Stderr, "arkive failed (exit status %d), press any key to close the console\n", code)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Press any key to close the console\n")
		}
		_, _, _ = bufio.NewReader(os.Stdin).ReadRune()
	}

	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}
