package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homemade/censustask/census"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "census-sync",
		Usage: "trigger a Census connector sync and wait for it to finish",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "env file to load before reading configuration",
			},
			&cli.StringFlag{
				Name:  "trigger",
				Usage: "API trigger URL, copied verbatim from the sync configuration page",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML config file with apiTrigger and pollStatusEverySeconds",
			},
			&cli.StringFlag{
				Name:  "sync-id",
				Usage: "run a sync registered in the environment, selected by its numeric id",
			},
			&cli.IntFlag{
				Name:  "poll-every",
				Usage: "seconds between status polls (minimum 5)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the final payload as JSON with log_url and elapsed_seconds added",
			},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("env"); envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return fmt.Errorf("failed to load env file %s %w", envfile, err)
		}
	}

	var cfg census.TaskConfig
	switch {
	case cmd.String("trigger") != "":
		cfg.APITrigger = cmd.String("trigger")
	case cmd.String("config") != "":
		f, err := os.Open(cmd.String("config"))
		if err != nil {
			return fmt.Errorf("failed to open config file %w", err)
		}
		defer f.Close()
		cfg, err = census.YAMLTaskConfigUnmarshaler{}.Unmarshal(census.OSEnvVar{}, f)
		if err != nil {
			return err
		}
	case cmd.String("sync-id") != "":
		var err error
		cfg, err = census.LoadTaskConfigFromEnvironment(cmd.String("sync-id"))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --trigger, --config or --sync-id is required")
	}

	task := cfg.Task()
	if n := cmd.Int("poll-every"); n > 0 {
		task.PollStatusEvery = time.Duration(n) * time.Second
	}

	result, err := task.Run(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		s, err := result.Annotated()
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}
	fmt.Print(result.Summary())
	return nil
}
