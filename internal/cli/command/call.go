package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
	"github.com/yndnr/ledgergate-go/internal/core/request"
	"github.com/yndnr/ledgergate-go/internal/core/service"
)

var errDryRun = errors.New("dry run")

// CallCommand invokes a stored procedure in its own transaction.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Call a stored procedure and print its rows",
		ArgsUsage: "PROCEDURE [ARG...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "order-by",
				Usage: "Order rows, e.g. \"transdate desc, id\"",
			},
			&cli.StringFlag{
				Name:  "array",
				Usage: "Bind all arguments as one array of this element type, e.g. int",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Roll back instead of committing",
			},
		},
		Action: callProcedure,
	}
}

func callProcedure(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("procedure name required")
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	flags := ParseGlobalFlags(c)

	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	db, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	initer, err := rt.Initializer(db)
	if err != nil {
		return err
	}

	q := url.Values{"procedure": {name}}
	req, err := initer.FromQuery(ctx, q.Encode(), rt.Env())
	if err != nil {
		return err
	}

	call := domain.ProcedureCall{
		Schema: req.Schema,
		Name:   name,
		Args:   callArgs(c.Args().Tail(), c.String("array")),
	}
	if call.OrderBy, err = domain.ParseOrderBy(c.String("order-by")); err != nil {
		_ = req.Finish(ctx, err)
		return err
	}
	if err := call.Validate(); err != nil {
		_ = req.Finish(ctx, err)
		return err
	}

	procs := service.NewProcedures(req.Schema, nil)
	rows, err := procs.Invoke(req.Context(ctx), req.Handle, call)
	if err != nil {
		abort := service.NewReporter(nil).Report(ctx, req, err)
		_ = req.Finish(ctx, abort)
		return abort
	}

	finish := error(nil)
	if c.Bool("dry-run") {
		finish = errDryRun
	}
	if err := req.Finish(ctx, finish); err != nil {
		return service.NewReporter(nil).Report(ctx, req, err)
	}

	rt.Logger().Debug("procedure called", "procedure", name, "rows", len(rows), "dry_run", finish != nil)
	if rows == nil {
		rows = []domain.Row{}
	}
	return writeResult(c, rows)
}

func callArgs(values []string, arrayType string) []domain.Arg {
	if arrayType != "" {
		a := domain.Array(values...)
		a.Type = arrayType
		return []domain.Arg{a}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return domain.Args(args...)
}

// ParamsCommand shows how a query string is parsed into request params.
func ParamsCommand() *cli.Command {
	return &cli.Command{
		Name:      "params",
		Usage:     "Parse a query string into request parameters",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "index",
				Usage: "Suffix copied keys with _<index>",
				Value: -1,
			},
			&cli.StringSliceFlag{
				Name:  "keys",
				Usage: "Copy only these keys",
			},
		},
		Action: showParams,
	}
}

func showParams(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	initer, err := rt.Initializer(nil)
	if err != nil {
		return err
	}
	req, err := initer.FromQuery(c.Context, c.Args().First(), rt.Env())
	if err != nil {
		return err
	}

	keys := c.StringSlice("keys")
	index := c.Int("index")
	if len(keys) == 0 && index < 0 {
		return writeResult(c, map[string]any(req.Params))
	}

	opts := request.MergeOptions{Keys: keys}
	if index >= 0 {
		opts = request.WithIndex(index, keys...)
	}
	merged := request.Params{}
	merged.Merge(req.Params, opts)
	return writeResult(c, map[string]any(merged))
}
