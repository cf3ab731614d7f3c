// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Command is an immutable engine argument vector under construction.
// Token 0 is always the engine binary and token 1 the subcommand; every
// builder method returns a new Command and leaves the receiver untouched,
// so a partially built Command can be shared and extended independently.
//
// Generated command: <binary> <subcommand> [flags] [--key value]* [args]*
// (the order is whatever order the caller appends in).
type Command struct {
	tokens []string
}

// NewCommand starts a command for the given engine binary and subcommand.
func NewCommand(binary, subcommand string) Command {
	return Command{tokens: []string{binary, subcommand}}
}

// Flag appends a single token, e.g. "-d" or "--no-stream".
func (c Command) Flag(token string) Command {
	return c.with(token)
}

// Option appends "--key" followed by the stringified value. Underscores in
// key become hyphens. Booleans render as "true"/"false"; a []string value
// repeats the option once per element.
func (c Command) Option(key string, value any) Command {
	flag := OptionFlag(key)
	if values, ok := value.([]string); ok {
		extra := make([]string, 0, 2*len(values))
		for _, v := range values {
			extra = append(extra, flag, v)
		}
		return c.with(extra...)
	}
	return c.with(flag, stringifyOption(value))
}

// Arg appends raw positional tokens.
func (c Command) Arg(tokens ...string) Command {
	return c.with(tokens...)
}

// Build materializes the argument vector. The returned slice is a copy and
// may be retained or modified by the caller.
func (c Command) Build() []string {
	return slices.Clone(c.tokens)
}

// Binary returns the engine binary token.
func (c Command) Binary() string {
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[0]
}

// Subcommand returns the engine subcommand token.
func (c Command) Subcommand() string {
	if len(c.tokens) < 2 {
		return ""
	}
	return c.tokens[1]
}

// String renders the command as a shell-quoted line, suitable for logs.
func (c Command) String() string {
	quoted := make([]string, len(c.tokens))
	for i, tok := range c.tokens {
		q, err := syntax.Quote(tok, syntax.LangBash)
		if err != nil {
			q = strconv.Quote(tok)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

func (c Command) with(extra ...string) Command {
	tokens := make([]string, 0, len(c.tokens)+len(extra))
	tokens = append(tokens, c.tokens...)
	tokens = append(tokens, extra...)
	return Command{tokens: tokens}
}

// OptionFlag normalizes an option key into its long-flag form:
// "memory_swap" becomes "--memory-swap".
func OptionFlag(key string) string {
	return "--" + strings.ReplaceAll(key, "_", "-")
}

func stringifyOption(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
