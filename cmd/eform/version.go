package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.env.Stdout, "eform %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
