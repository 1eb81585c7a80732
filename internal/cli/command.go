package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tavern/app/internal/app/bootstrap"
	"tavern/app/internal/config"
	applog "tavern/app/internal/log"
	"tavern/app/internal/roster"
)

// Options holds the flags shared by every roster command.
type Options struct {
	DBPath   string
	LogLevel string
	LogFile  string
	cfg      config.Config
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.DBPath, "db", "d", o.DBPath, "path to the roster SQLite database")
	flagSet.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level (debug, info, warn, error)")
	flagSet.StringVar(&o.LogFile, "log-file", o.LogFile, "write logs to this rotated file instead of stderr")
}

// NewRootCommand builds the roster CLI with defaults taken from cfg.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &Options{
		DBPath:   cfg.DBPath,
		LogLevel: cfg.LogLevel,
		LogFile:  cfg.LogFile,
		cfg:      cfg,
	}

	root := &cobra.Command{
		Use:           "roster",
		Short:         "manage the tavern character roster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newCreateTableCommand(opts),
		newDropTableCommand(opts),
		newAddCommand(opts),
		newListCommand(opts),
		newDeleteCommand(opts),
		newSeedCommand(opts),
	)

	return root
}

func newCreateTableCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "create-table",
		Short: "create the roster table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				if err := service.CreateTable(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "roster table created")
				return nil
			})
		},
	}
}

func newDropTableCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-table",
		Short: "drop the roster table and every character in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				if err := service.DropTable(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "roster table dropped")
				return nil
			})
		},
	}
}

type addOptions struct {
	owner     string
	level     int
	role      string
	character string
	race      string
	alignment string
}

func newAddCommand(opts *Options) *cobra.Command {
	add := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "add a character and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			record := roster.Record{
				Owner:         add.owner,
				Level:         add.level,
				Role:          add.role,
				CharacterName: add.character,
			}
			if cmd.Flags().Changed("race") {
				record.Race = roster.OptionalString(add.race)
			}
			if cmd.Flags().Changed("alignment") {
				record.Alignment = roster.OptionalString(add.alignment)
			}

			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				id, err := service.Create(ctx, record)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&add.owner, "owner", "", "player that owns the character")
	flags.IntVar(&add.level, "level", 1, "character level")
	flags.StringVar(&add.role, "role", "", "character class")
	flags.StringVar(&add.character, "character", "", "character name")
	flags.StringVar(&add.race, "race", "", "character race")
	flags.StringVar(&add.alignment, "alignment", "", "character alignment")
	for _, name := range []string{"owner", "level", "role", "character"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

type jsonCharacter struct {
	ID        int64   `json:"id"`
	Owner     string  `json:"owner"`
	Level     int     `json:"level"`
	Role      string  `json:"role"`
	Character string  `json:"character"`
	Race      *string `json:"race"`
	Alignment *string `json:"alignment"`
}

func newListCommand(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list characters ordered by owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				records, err := service.ListAllByOwner(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), records)
				}
				return writeTable(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the roster as JSON")
	return cmd
}

func newDeleteCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a character by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return eris.Wrapf(err, "invalid character id: %s", args[0])
			}

			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				return service.DeleteByID(ctx, id)
			})
		},
	}
}

func newSeedCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "insert the sample party",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoster(cmd, opts, func(ctx context.Context, service roster.Service) error {
				ids, err := service.Seed(ctx)
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return err
			})
		},
	}
}

// withRoster opens the database for a single command and closes it on every path.
func withRoster(cmd *cobra.Command, opts *Options, fn func(context.Context, roster.Service) error) (err error) {
	logger, err := applog.NewLogger(applog.Settings{Level: opts.LogLevel, File: opts.LogFile})
	if err != nil {
		return eris.Wrap(err, "initialising logger")
	}
	if strings.TrimSpace(opts.LogFile) == "" {
		logger.SetOutput(cmd.ErrOrStderr())
	}

	cfg := opts.cfg
	cfg.DBPath = opts.DBPath

	storage, err := bootstrap.OpenStorage(bootstrap.Dependencies{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
			if err == nil {
				err = closeErr
			}
		}
	}()

	logger.WithFields(logrus.Fields{"command": cmd.Name(), "db_path": cfg.DBPath}).Debug("running roster command")
	return fn(cmd.Context(), storage.Roster)
}

func writeJSON(w io.Writer, records []roster.Record) error {
	payload := lo.Map(records, func(record roster.Record, _ int) jsonCharacter {
		return jsonCharacter{
			ID:        record.ID,
			Owner:     record.Owner,
			Level:     record.Level,
			Role:      record.Role,
			Character: record.CharacterName,
			Race:      record.Race,
			Alignment: record.Alignment,
		}
	})

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return eris.Wrap(err, "encoding roster as json")
	}
	return nil
}

func writeTable(w io.Writer, records []roster.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAYER\tLEVEL\tROLE\tCHARACTER\tRACE\tALIGNMENT")
	for _, record := range records {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			record.ID,
			record.Owner,
			record.Level,
			record.Role,
			record.CharacterName,
			orDash(record.Race),
			orDash(record.Alignment),
		)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "writing roster table")
	}
	return nil
}

func orDash(value *string) string {
	if v := lo.FromPtr(value); v != "" {
		return v
	}
	return "-"
}
