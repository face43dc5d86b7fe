package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kamalbuilds/movetracer/node"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version string

const greeting = `
 _ __ ___   _____   _____| |_ _ __ __ _  ___ ___ _ __
| '_ ' _ \ / _ \ \ / / _ \ __| '__/ _' |/ __/ _ \ '__|
| | | | | | (_) \ V /  __/ |_| | | (_| | (_|  __/ |
|_| |_| |_|\___/ \_/ \___|\__|_|  \__,_|\___\___|_|

Movetracer simulates Movement transactions before they are signed.

`

const envPrefix = "MOVETRACER"

const (
	configF               = "config"
	envFileF              = "env-file"
	outputF               = "output"
	logLevelF             = "log-level"
	colourF               = "colour"
	networkF              = "network"
	httpHostF             = "http-host"
	httpPortF             = "http-port"
	corsOriginsF          = "cors-origins"
	metricsF              = "metrics"
	metricsHostF          = "metrics-host"
	metricsPortF          = "metrics-port"
	mainnetRPCF           = "mainnet-rpc"
	mainnetFallbacksF     = "mainnet-fallbacks"
	testnetRPCF           = "testnet-rpc"
	testnetFallbacksF     = "testnet-fallbacks"
	devnetRPCF            = "devnet-rpc"
	devnetFallbacksF      = "devnet-fallbacks"
	lookupTimeoutF        = "lookup-timeout"
	transactionTimeoutF   = "transaction-timeout"
	simulateTimeoutF      = "simulate-timeout"
	historyPathF          = "history-path"
	historyLimitF         = "history-limit"
	abiCacheSizeF         = "abi-cache-size"
	txCacheSizeF          = "tx-cache-size"
	maxSimulationsF       = "max-simulations"
	maxQueuedSimulationsF = "max-queued-simulations"

	configFlagUsage   = "The YAML configuration file."
	envFileUsage      = "A .env file to load. The .env file of the working directory is loaded when present."
	outputUsage       = "Output format of one-shot commands. Options: table, json, yaml."
	logLevelUsage     = "Options: debug, info, warn, error."
	colourUsage       = "Colourize logs and table output."
	networkUsage      = "Default network when a request names none. Options: mainnet, testnet, devnet."
	httpHostUsage     = "The interface on which the REST server will listen for requests."
	httpPortUsage     = "The port on which the REST server will listen for requests."
	corsOriginsUsage  = "Origins allowed to call the REST server. Empty disables CORS headers."
	metricsUsage      = "Enables the Prometheus metrics endpoint."
	metricsHostUsage  = "The interface on which the Prometheus endpoint will listen for requests."
	metricsPortUsage  = "The port on which the Prometheus endpoint will listen for requests."
	rpcUsage          = "Overrides the primary full node endpoint of %s."
	fallbacksUsage    = "Overrides the fallback full node endpoints of %s, tried in order."
	lookupUsage       = "Per-attempt timeout of account, module, ledger and view lookups."
	transactionUsage  = "Per-attempt timeout of transaction lookups."
	simulateUsage     = "Per-attempt timeout of simulation calls."
	historyPathUsage  = "Directory of the persistent simulation history. Empty keeps history in memory."
	historyLimitUsage = "Number of simulations the history keeps."
	abiCacheUsage     = "Number of module ABIs cached across validations."
	txCacheUsage      = "Number of committed transactions cached across lookups and replays."
	maxSimUsage       = "Maximum number of simulations and replays run concurrently by the REST server."
	maxQueuedSimUsage = "Maximum number of simulations waiting for a slot before requests are rejected."
)

var (
	Movetracer node.Movetracer
	cfgFile    string
	envFile    string
	output     string
)

func NewCmd(newNodeFn node.NewMovetracerFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "movetracer [flags]",
		Short:   "Movement transaction simulator and replay server.",
		Version: Version,
		Args:    cobra.NoArgs,
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		switch output {
		case outputTable, outputJSON, outputYAML:
			return nil
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
	}

	defaults := node.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, configF, "", configFlagUsage)
	flags.StringVar(&envFile, envFileF, "", envFileUsage)
	flags.StringVarP(&output, outputF, "o", outputTable, outputUsage)
	flags.Var(&defaults.LogLevel, logLevelF, logLevelUsage)
	flags.Bool(colourF, defaults.Colour, colourUsage)
	flags.Var(&defaults.Network, networkF, networkUsage)
	flags.String(httpHostF, defaults.HTTPHost, httpHostUsage)
	flags.Uint16(httpPortF, defaults.HTTPPort, httpPortUsage)
	flags.StringSlice(corsOriginsF, defaults.CORSOrigins, corsOriginsUsage)
	flags.Bool(metricsF, defaults.Metrics, metricsUsage)
	flags.String(metricsHostF, defaults.MetricsHost, metricsHostUsage)
	flags.Uint16(metricsPortF, defaults.MetricsPort, metricsPortUsage)
	flags.String(mainnetRPCF, "", fmt.Sprintf(rpcUsage, "mainnet"))
	flags.StringSlice(mainnetFallbacksF, defaults.MainnetFallbacks, fmt.Sprintf(fallbacksUsage, "mainnet"))
	flags.String(testnetRPCF, "", fmt.Sprintf(rpcUsage, "testnet"))
	flags.StringSlice(testnetFallbacksF, defaults.TestnetFallbacks, fmt.Sprintf(fallbacksUsage, "testnet"))
	flags.String(devnetRPCF, "", fmt.Sprintf(rpcUsage, "devnet"))
	flags.StringSlice(devnetFallbacksF, defaults.DevnetFallbacks, fmt.Sprintf(fallbacksUsage, "devnet"))
	flags.Duration(lookupTimeoutF, defaults.LookupTimeout, lookupUsage)
	flags.Duration(transactionTimeoutF, defaults.TransactionTimeout, transactionUsage)
	flags.Duration(simulateTimeoutF, defaults.SimulateTimeout, simulateUsage)
	flags.String(historyPathF, defaults.HistoryPath, historyPathUsage)
	flags.Int(historyLimitF, defaults.HistoryLimit, historyLimitUsage)
	flags.Int(abiCacheSizeF, defaults.ABICacheSize, abiCacheUsage)
	flags.Int(txCacheSizeF, defaults.TxCacheSize, txCacheUsage)
	flags.Uint(maxSimulationsF, defaults.MaxSimulations, maxSimUsage)
	flags.Int32(maxQueuedSimulationsF, defaults.MaxQueuedSimulations, maxQueuedSimUsage)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprint(cmd.OutOrStdout(), greeting); err != nil {
			return err
		}

		Movetracer, err = newNodeFn(cfg, Version)
		if err != nil {
			return err
		}
		Movetracer.Run(cmd.Context())
		return nil
	}

	cmd.AddCommand(
		simulateCmd(),
		replayCmd(),
		validateCmd(),
		txCmd(),
		accountCmd(),
		recentCmd(),
		healthCmd(),
		historyCmd(),
		configCmd(),
		versionCmd(),
	)
	return cmd
}

// loadEnvFile loads an explicitly named file strictly and the working directory's .env
// only when it exists. Variables already set in the environment win.
func loadEnvFile(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// loadConfig resolves the configuration of cmd. Precedence from highest to lowest:
// flags, MOVETRACER_* environment variables, the config file, flag defaults.
func loadConfig(cmd *cobra.Command) (*node.Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	cfg := new(node.Config)
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
