package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/extract"
)

func newExtractCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "extract <template.docx>",
		Short: "List the placeholders of a template",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			variables, err := extract.File(args[0])
			if err != nil {
				return &eform.Error{Kind: eform.KindTemplateMissing, Op: "reading template", Err: err}
			}
			if asJSON {
				if variables == nil {
					variables = []string{}
				}
				enc := json.NewEncoder(a.env.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(variables)
			}
			for _, v := range variables {
				fmt.Fprintln(a.env.Stdout, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	return cmd
}
