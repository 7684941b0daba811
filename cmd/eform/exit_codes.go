package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/config"
	"github.com/alnah/go-eform/internal/convert"
	"github.com/alnah/go-eform/internal/hints"
	"github.com/alnah/go-eform/internal/token"
)

// Exit codes for the eform CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or input
	ExitIO      = 3 // Missing template, record or file
	ExitBrowser = 4 // Chrome could not print the document
	ExitRender  = 5 // Template could not be bound or fonts are missing
	ExitToken   = 6 // Token rejected
)

// errUsage marks command line mistakes.
var errUsage = errors.New("usage")

// exitCodeFor returns the exit code for an error returned by a command.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) {
		return ExitUsage
	}

	switch eform.KindOf(err) {
	case eform.KindInvalidInput:
		return ExitUsage
	case eform.KindNotFound, eform.KindTemplateMissing, eform.KindIO:
		return ExitIO
	case eform.KindConversion:
		return ExitBrowser
	case eform.KindRender, eform.KindFontResourceMissing:
		return ExitRender
	case eform.KindToken:
		return ExitToken
	}

	if errors.Is(err, token.ErrMalformed) ||
		errors.Is(err, token.ErrSignature) ||
		errors.Is(err, token.ErrAlgorithm) {
		return ExitToken
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return ExitIO
	}
	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "". cfg may be nil when
// the configuration failed to load.
func hintFor(err error, cfg *config.Config, getenv func(string) string) string {
	switch {
	case errors.Is(err, convert.ErrBrowserConnect):
		return hints.ForBrowserConnect(getenv)
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	}

	switch eform.KindOf(err) {
	case eform.KindFontResourceMissing:
		family, dir := config.DefaultFontFamily, ""
		if cfg != nil {
			family, dir = cfg.Render.FontFamily, cfg.Render.AssetsDir
		}
		return hints.ForFontNotFound(family, dir)
	case eform.KindToken:
		return hints.ForToken()
	case eform.KindTemplateMissing:
		return hints.ForTemplate()
	}
	if errors.Is(err, token.ErrSignature) {
		return hints.ForToken()
	}
	return ""
}

// triedPaths recovers the searched locations from a config lookup error.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}
