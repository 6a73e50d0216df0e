package main

import (
	"errors"
	"fmt"
	"os"

	chassis "github.com/ai8future/chassis-go/v5"

	"github.com/factor591/aisheets/cmd"
)

func main() {
	chassis.RequireMajor(5)

	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
