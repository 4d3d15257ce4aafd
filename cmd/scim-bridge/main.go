package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/MacJediWizard/scim-bridge-docker/pkg/bridge"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/config"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/mailcow"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/server"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/signal"
)

func main() {
	kpApp := kingpin.New("scim-bridge", "SCIM 2.0 bridge for Mailcow mailbox provisioning.")

	flagCfg := &config.Config{}
	var configFile string

	startCmd := kpApp.Command("start", "Start the bridge.").
		Default().
		Action(func(_ *kingpin.ParseContext) error {
			logrus.SetOutput(os.Stdout)
			logrus.SetFormatter(&logrus.TextFormatter{
				DisableColors: true,
				FullTimestamp: true,
			})

			cfg, err := config.Resolve(flagCfg, configFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
				os.Exit(1)
			}
			if cfg.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}

			client := mailcow.NewClient(cfg.MailcowAPIURL, cfg.MailcowAPIKey, cfg.MailcowTimeout)
			rec := bridge.NewReconciler(cfg, client)
			srv := server.New(cfg, rec)
			if err := srv.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "start: %v\n", err)
				os.Exit(1)
			}

			signal.WaitForProcessInterruption(func() {
				srv.Stop()
				os.Exit(0)
			})
			return nil
		})

	startCmd.Flag("config", "Optional YAML configuration file; flags and environment variables override it.").
		Envar("SCIM_BRIDGE_CONFIG").
		StringVar(&configFile)
	config.DefineFlags(startCmd, flagCfg)

	kingpin.MustParse(kpApp.Parse(os.Args[1:]))
}
