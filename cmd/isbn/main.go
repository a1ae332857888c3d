package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iziplay/isbn-api/pkg/isbn"
	"github.com/iziplay/isbn-api/pkg/rangemsg"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// errSomeFailed is returned when at least one argument could not be handled;
// the reason was already printed next to it.
var errSomeFailed = errors.New("some identifiers failed")

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "isbn",
		Usage:           "validates, converts and decomposes ISBNs",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ranges", Aliases: []string{"r"}, Sources: cli.EnvVars("ISBN_RANGES_FILE"),
				Usage: "load range message from `FILE` (RangeMessage.xml), needed by parts and ranges"},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Checks ISBN-10 and ISBN-13 check characters",
				ArgsUsage: "ISBN...",
				Action:    validate,
			},
			{
				Name:      "convert",
				Usage:     "Converts ISBNs to the requested form",
				ArgsUsage: "ISBN...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "to", Value: 13, Usage: "target `LENGTH` (10 or 13)"},
				},
				Action: convert,
			},
			{
				Name:      "parts",
				Usage:     "Prints hyphenated ISBN-13 using the range table",
				ArgsUsage: "ISBN...",
				Action:    parts,
			},
			{
				Name:   "ranges",
				Usage:  "Dumps the range table (YAML)",
				Action: dumpRanges,
			},
		},
	}
}

func validate(_ context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	var err error
	for _, arg := range cmd.Args().Slice() {
		kind := isbn.KindOf(arg)
		if kind == isbn.KindInvalid {
			fmt.Fprintf(out, "%s\t%s\tinvalid\n", arg, isbn.Normalize(arg))
			err = errSomeFailed
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", arg, isbn.Normalize(arg), kind)
	}
	return err
}

func convert(_ context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	to := int(cmd.Int("to"))
	if to != 10 && to != 13 {
		return fmt.Errorf("unsupported length %d, use 10 or 13", to)
	}

	var err error
	for _, arg := range cmd.Args().Slice() {
		converted, ok := isbn.Convert(arg, to)
		if !ok {
			fmt.Fprintf(out, "%s\t-\n", arg)
			err = errSomeFailed
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", arg, converted)
	}
	return err
}

func parts(_ context.Context, cmd *cli.Command) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	var failed error
	for _, arg := range cmd.Args().Slice() {
		p, err := table.Parts(arg)
		if err != nil {
			fmt.Fprintf(out, "%s\t-\t%v\n", arg, err)
			failed = errSomeFailed
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", arg, p)
	}
	return failed
}

func dumpRanges(_ context.Context, cmd *cli.Command) error {
	msg, err := loadMessage(cmd)
	if err != nil {
		return err
	}
	table, err := msg.Table()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.Root().Writer)
	enc.SetIndent(2)
	err = enc.Encode(struct {
		Metadata isbn.Metadata `yaml:"metadata"`
		Prefixes []isbn.Group  `yaml:"prefixes,omitempty"`
		Groups   []isbn.Group  `yaml:"groups"`
	}{table.Metadata(), msg.Prefixes, table.Groups()})
	return multierr.Append(err, enc.Close())
}

func loadMessage(cmd *cli.Command) (*rangemsg.Message, error) {
	file := cmd.String("ranges")
	if file == "" {
		return nil, errors.New("range message is required, use --ranges FILE")
	}
	msg, err := rangemsg.ParseFile(file)
	if err != nil {
		return nil, err
	}
	for _, w := range multierr.Errors(msg.Warnings) {
		slog.Debug("Range message warning", "warning", w)
	}
	return msg, nil
}

func loadTable(cmd *cli.Command) (*isbn.RangeTable, error) {
	msg, err := loadMessage(cmd)
	if err != nil {
		return nil, err
	}
	return msg.Table()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	app := newApp()
	app.Writer = stdout
	return app.Run(ctx, args)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(ctx, os.Args, os.Stdout); err != nil {
		if !errors.Is(err, errSomeFailed) {
			slog.Error("Program ended with error", "error", err)
		}
		stop()
		os.Exit(1)
	}
}
