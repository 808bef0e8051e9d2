package cmd

import (
	"context"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/types"
)

// Sigs prints the macro signatures of templates.
type Sigs struct {
	Templates []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin" name:"template"`
	JSON      bool     `help:"Print JSON instead of YAML" short:"j"`
}

// signature is the structured form of a [types.Signature].
type signature struct {
	Name     string            `json:"name"     yaml:"name"`
	Args     []string          `json:"args"     yaml:"args"`
	Params   []string          `json:"params"   yaml:"params"`
	Return   string            `json:"return"   yaml:"return"`
	Loc      span.CodeLocation `json:"loc"      yaml:"loc"`
	Required int               `json:"required" yaml:"required"`
	Typed    bool              `json:"typed"    yaml:"typed"`
}

func makeSignature(s *types.Signature) signature {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}

	return signature{
		Name:     s.Name,
		Args:     s.Args,
		Params:   params,
		Return:   s.Return.String(),
		Loc:      s.Loc,
		Required: s.Required,
		Typed:    s.Typed,
	}
}

// Run executes the sigs command.
func (s *Sigs) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpls, err := readTemplates(s.Templates, os.Stdin)
	if err != nil {
		return err
	}

	e := engineFrom(ctx)

	var out []signature

	for _, t := range tmpls {
		reg, err := e.Signatures(ctx, t.Name, t.Source)
		if err != nil {
			return err
		}

		for sig := range reg.All() {
			out = append(out, makeSignature(sig))
		}
	}

	opts := []yaml.EncodeOption{yaml.Indent(2)}
	if s.JSON {
		opts = append(opts, yaml.JSON())
	}

	buf, err := yaml.MarshalWithOptions(out, opts...)
	if err != nil {
		return ErrMarshal.Wrap(err)
	}

	_, err = outputFrom(ctx).Write(buf)

	return err
}
