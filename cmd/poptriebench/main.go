// Command poptriebench builds a Poptrie from a destinations file, checks
// that every inserted prefix resolves to its own recorded next hop, then
// measures lookup throughput across a configurable number of worker
// goroutines.
package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	logLevel      string
	envPrefix     = "POPTRIEBENCH"
	datasetPath   string
	directBits    uint8
	workerCount   int
	checkpointSec []int
)

var rootCmd = &cobra.Command{
	Use:   "poptriebench",
	Short: "Build a Poptrie from a destinations file and measure lookup throughput",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func initConfig() {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		_ = v.ReadInConfig()
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	bindFlags(rootCmd, v)
	initLogger()
}

func initLogger() {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.InfoLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		_ = v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix))
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func initFlags() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "path to the destinations file")
	rootCmd.PersistentFlags().Uint8Var(&directBits, "direct-bits", 12, "direct-pointing width s, one of 0, 6, 12, 18, 24")
	rootCmd.PersistentFlags().IntVar(&workerCount, "workers", 4, "number of throughput worker goroutines")
	rootCmd.PersistentFlags().IntSliceVar(&checkpointSec, "checkpoints", []int{5, 10, 15, 20, 25}, "throughput measurement checkpoints, in seconds")
	_ = rootCmd.MarkPersistentFlagRequired("dataset")
}

func main() {
	initFlags()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
