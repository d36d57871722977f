package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oksasatya/bar-occupancy/pkg/client"
)

const (
	cfgKeyServer         = "server"
	cfgKeyUsername       = "username"
	cfgKeyPassword       = "password"
	cfgKeyInterval       = "interval"
	cfgKeyGCSBucket      = "gcs_bucket"
	cfgKeyGCSCredentials = "gcs_credentials"
	cfgKeySnapshotPrefix = "snapshot_prefix"
	cfgKeyTimeout        = "timeout"
)

// app carries the resolved configuration into every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "barwatch",
		Short:         "Watch and update bar occupancy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./barwatch.yaml if present)")
	pf.String(cfgKeyServer, "http://localhost:8080", "API base URL")
	pf.String(cfgKeyUsername, "", "manager username for set")
	pf.String(cfgKeyPassword, "", "manager password for set")
	pf.Duration(cfgKeyTimeout, 10*time.Second, "HTTP request timeout")
	for _, key := range []string{cfgKeyServer, cfgKeyUsername, cfgKeyPassword, cfgKeyTimeout} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}

	a.v.SetDefault(cfgKeyInterval, client.DefaultPollInterval)
	a.v.SetDefault(cfgKeySnapshotPrefix, "snapshots")
	a.v.SetEnvPrefix("BARWATCH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(newListCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newSetCmd(a))
	root.AddCommand(newSnapshotCmd(a))
	return root
}

// loadConfig reads the config file when one is given or found. A missing
// default file is not an error.
func (a *app) loadConfig() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName("barwatch")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && a.configFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) client() (*client.Client, error) {
	return client.New(a.v.GetString(cfgKeyServer), client.WithTimeout(a.v.GetDuration(cfgKeyTimeout)))
}
