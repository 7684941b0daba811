package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/dateutil"
	"github.com/alnah/go-eform/internal/extract"
	"github.com/alnah/go-eform/internal/fileutil"
	"github.com/alnah/go-eform/internal/formdata"
	"github.com/alnah/go-eform/internal/yamlutil"
)

const pdfPerm = 0o644

func newRenderCmd(a *app) *cobra.Command {
	var (
		rf      renderFlags
		data    string
		output  string
		prompt  bool
		preview bool
	)
	cmd := &cobra.Command{
		Use:   "render <template.docx>",
		Short: "Bind form data into a template and print it to PDF",
		Long: `Render binds the values of a JSON or YAML data file into the template
placeholders and writes the PDF next to the template unless --output is set.
Use --data - to read the values from stdin. A value of @today, or
@today:FORMAT such as @today:DD/MM/YYYY, prints the current date.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rf.apply(cmd.Flags(), a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.render(cmd.Context(), args[0], data, output, prompt, preview)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&data, "data", "d", "", "JSON or YAML file with the form values")
	fs.StringVarP(&output, "output", "o", "", "output PDF path")
	fs.BoolVarP(&prompt, "prompt", "p", false, "ask for variables the data leaves out")
	fs.BoolVar(&preview, "preview", false, "show missing variables as [name]")
	addRenderFlags(fs, &rf)
	return cmd
}

func (a *app) render(ctx context.Context, templatePath, dataPath, output string, prompt, preview bool) error {
	values, err := a.readValues(dataPath)
	if err != nil {
		return err
	}

	if prompt || preview {
		variables, err := extract.File(templatePath)
		if err != nil {
			return &eform.Error{Kind: eform.KindTemplateMissing, Op: "reading template", Err: err}
		}
		if prompt {
			if err := a.askMissing(ctx, variables, values); err != nil {
				return err
			}
		}
		if preview {
			values = eform.PreviewData(variables, values)
		}
	}

	loader, err := assets.NewResolver(a.cfg.Render.AssetsDir)
	if err != nil {
		return err
	}
	g := eform.NewGenerator(a.generatorConfig(loader))
	defer func() {
		if err := g.Close(); err != nil {
			a.logger.Warn("closing renderer", "error", err)
		}
	}()

	values, err = dateutil.ResolveValues(formdata.Clean(values), a.env.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	pdf, err := g.Generate(ctx, templatePath, values)
	if err != nil {
		return err
	}

	if output == "" {
		output = strings.TrimSuffix(templatePath, filepath.Ext(templatePath)) + ".pdf"
	}
	if err := fileutil.WriteFileAtomic(output, pdf, pdfPerm); err != nil {
		return &eform.Error{Kind: eform.KindIO, Op: "writing PDF", Err: err}
	}
	fmt.Fprintf(a.env.Stdout, "%s (%d bytes)\n", output, len(pdf))
	return nil
}

// readValues loads the data file. An empty path means no values.
func (a *app) readValues(path string) (map[string]any, error) {
	values := map[string]any{}
	if path == "" {
		return values, nil
	}

	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(a.env.Stdin)
	} else {
		raw, err = os.ReadFile(path) // #nosec G304 -- data path is user-provided
	}
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return values, nil
	}
	if err := yamlutil.UnmarshalData(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: data %s: %v", errUsage, path, err)
	}
	return values, nil
}

// askMissing prompts for each variable absent from values, in template order.
func (a *app) askMissing(ctx context.Context, variables []string, values map[string]any) error {
	for _, name := range variables {
		if _, ok := values[name]; ok {
			continue
		}
		v, err := a.env.Prompter.Ask(ctx, name)
		if err != nil {
			return fmt.Errorf("prompting for %s: %w", name, err)
		}
		values[name] = v
	}
	return nil
}
