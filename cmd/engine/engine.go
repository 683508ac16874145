package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"trustmesh/engine/actors"
	"trustmesh/engine/library"
	"trustmesh/messaging/eventconductor"
	"trustmesh/messaging/mirror"
	"trustmesh/messaging/relays"
	"trustmesh/state/signals"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// Various aspect of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()
	var console bool
	cmd := &cobra.Command{
		Use:           "engine",
		Short:         "Follow the recognition topic and print resolved signals",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := actors.InitConfig(conf); err != nil {
				return err
			}
			if err := actors.Validate(conf); err != nil {
				library.LogCLI(err, library.LevelError)
				return err
			}
			// make the config accessible globally
			actors.SetConfig(conf)
			if err := actors.WriteConfig(conf); err != nil {
				library.LogCLI(err, library.LevelWarn)
			}
			return run(cmd.Context(), conf, console)
		},
	}
	f := cmd.Flags()
	f.String("rootDir", "", "directory holding config.yaml and wallet.dat")
	f.String("mirrorRest", "", "mirror node REST base url")
	f.String("mirrorWs", "", "mirror node WebSocket base url, without port")
	f.String("recognitionTopic", "", "recognition topic id, e.g. 0.0.4610")
	f.Int("backfillLimit", 0, "messages read from history before going live")
	f.Int("logLevel", 0, "0 fatal .. 5 trace")
	f.StringSlice("relays", nil, "nostr relays to mirror resolved signals to")
	f.BoolVar(&console, "console", false, "read single key commands from the terminal")
	f.VisitAll(func(fl *pflag.Flag) {
		_ = conf.BindPFlag(fl.Name, fl)
	})
	return cmd
}

func run(ctx context.Context, conf *viper.Viper, console bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := conf.GetInt("logLevel")
	store := signals.NewStore()
	client := mirror.NewClient(conf.GetString("mirrorRest"), conf.GetString("mirrorWs"), library.NewCLILogger("mirror", level))
	client.WSPort = conf.GetString("mirrorWsPort")
	conductor := eventconductor.New(client, store, eventconductor.Options{
		Topic:         conf.GetString("recognitionTopic"),
		BackfillLimit: conf.GetInt("backfillLimit"),
		BackfillOrder: mirror.Order(conf.GetString("backfillOrder")),
		MaxPending:    conf.GetInt("maxPending"),
	}, library.NewCLILogger("recognition", level))
	defer conductor.Dispose()

	unlisten := store.Listen(func(s signals.Signal) {
		fmt.Printf("%s  %s -> %s  %s\n", s.Payload.DefinitionName, s.Actors.From, s.Actors.To, s.ID)
	})
	defer unlisten()

	if urls := conf.GetStringSlice("relays"); len(urls) > 0 {
		w, err := actors.MyWallet()
		if err != nil {
			return err
		}
		m := relays.StartMirror(ctx, urls, w, library.NewCLILogger("relays", level))
		defer m.Stop()
		defer store.Listen(m.Handle)()
	}

	if err := conductor.Initialize(ctx); err != nil {
		return err
	}
	sleeper(actors.Shutdown)
	if console {
		go cliListener(conductor, store, actors.Shutdown)
	}
	select {
	case <-ctx.Done():
	case <-actors.GetTerminateChan():
	}
	fmt.Println("Bye")
	return nil
}
