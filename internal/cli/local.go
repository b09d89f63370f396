package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mcoot/playersync/internal/config"
	"github.com/mcoot/playersync/internal/factory"
	"github.com/mcoot/playersync/internal/model"
)

// defaultGain matches one click in the game client
const defaultGain = 25

var errNoSkillPoints = errors.New("no skill points available")

// withSession signs in, runs op, waits for saves to land and closes the app
func withSession(cmd *cobra.Command, op func(ctx context.Context, app *factory.App) error) error {
	ctx := cmd.Context()

	envCfg, err := config.Load()
	if err != nil {
		return err
	}
	envCfg.LogLevel = "warn"
	if cfg.Verbose {
		envCfg.LogLevel = "debug"
	}
	logger := envCfg.NewLogger(cmd.ErrOrStderr())

	app, err := factory.New(factory.ConfigFrom(envCfg, logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	runErr := func() error {
		if err := app.Start(ctx); err != nil {
			return err
		}
		if err := app.SignIn(ctx, cfg.User, cfg.Password); err != nil {
			return err
		}
		if err := op(ctx, app); err != nil {
			return err
		}
		return app.Progression.Flush(ctx)
	}()

	return errors.Join(runErr, app.Close(context.Background()))
}

// authErrorDuring runs fn and converts an auth_error emitted meanwhile into an error
func authErrorDuring(app *factory.App, fn func() error) error {
	var (
		mu      sync.Mutex
		authErr error
	)
	h := app.Auth.Subscribe(func(e model.Event) {
		payload, ok := e.Payload.(model.AuthErrorPayload)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if authErr == nil {
			authErr = fmt.Errorf("%s failed: %s", payload.Kind, payload.Message)
		}
	})
	defer app.Auth.Unsubscribe(h)

	if err := fn(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return authErr
}

func printStatus(cmd *cobra.Command, app *factory.App) {
	NewOutput(cmd.OutOrStdout(), cfg.Output).Print(statusFromApp(app))
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the player's progression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				printStatus(cmd, app)
				return nil
			})
		},
	}
}

func newGainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gain [amount]",
		Short: "Gain experience (default 25)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := defaultGain
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || !model.ValidExperienceGain(n) {
					return fmt.Errorf("amount must be an integer between 1 and %d, got %q", model.MaxExperienceGain, args[0])
				}
				amount = n
			}

			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				if !app.Progression.AddExperience(amount) {
					return model.ErrNotLoaded
				}
				printStatus(cmd, app)
				return nil
			})
		},
	}
}

func newSpendCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "spend <stat>",
		Short:     "Spend a skill point on strength, defense or agility",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(model.StatStrength), string(model.StatDefense), string(model.StatAgility)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := model.ParseStat(args[0]); !ok {
				return fmt.Errorf("%w: %q", model.ErrUnknownStat, args[0])
			}

			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				if !app.Progression.UseSkillPoint(args[0]) {
					return errNoSkillPoints
				}
				printStatus(cmd, app)
				return nil
			})
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				err := authErrorDuring(app, func() error {
					return app.Auth.UpdateName(ctx, args[0])
				})
				if err != nil {
					return err
				}
				printStatus(cmd, app)
				return nil
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset progression to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				app.Progression.Reset()
				printStatus(cmd, app)
				return nil
			})
		},
	}
}

func newDeleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account and its stored progression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, app *factory.App) error {
				playerID := app.Auth.PlayerID()
				err := authErrorDuring(app, func() error {
					return app.Auth.DeleteAccount(ctx)
				})
				if err != nil {
					return err
				}
				NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage(fmt.Sprintf("Deleted account %s", playerID))
				return nil
			})
		},
	}
}
