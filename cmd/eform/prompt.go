package main

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// prompter asks the user for the value of a template variable.
type prompter interface {
	Ask(ctx context.Context, variable string) (string, error)
}

// surveyPrompter prompts on the terminal.
type surveyPrompter struct{}

func (surveyPrompter) Ask(ctx context.Context, variable string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: variable + ":",
		Help:    "value bound to {{" + variable + "}}; leave empty to render it blank",
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", context.Canceled
		}
		return "", err
	}
	return out, nil
}
