// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fixedpool/fixedpool/cfg"
	"github.com/fixedpool/fixedpool/common"
	"github.com/fixedpool/fixedpool/internal/util"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NewRootCmd builds the fixedpool command. runFn is called with the resolved,
// rationalized and validated configuration.
func NewRootCmd(runFn func(*cfg.Config) error) (*cobra.Command, error) {
	var (
		configObj   cfg.Config
		cfgFile     string
		printConfig bool
	)
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "fixedpool [flags]",
		Short: "Run a synthetic workload on a fixed-size worker pool",
		Long: `fixedpool starts a pool with a fixed number of workers and feeds it
synthetic tasks from a set of producers. Tasks run in submission order.
Closing the pool stops new submissions while queued tasks still run.`,
		Version:      common.GetVersion(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v, cfgFile, &configObj); err != nil {
				return err
			}
			if printConfig {
				return dumpConfig(cmd.OutOrStdout(), &configObj)
			}
			return runFn(&configObj)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "The path to the config file where all fixedpool related config needs to be specified.")
	rootCmd.PersistentFlags().BoolVar(&printConfig, "print-config", false, "Print the effective configuration as YAML and exit.")
	if err := cfg.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("error while declaring/binding flags: %w", err)
	}
	return rootCmd, nil
}

func initConfig(v *viper.Viper, cfgFile string, c *cfg.Config) error {
	if cfgFile != "" {
		path, err := util.GetResolvedPath(cfgFile)
		if err != nil {
			return fmt.Errorf("error while resolving config-file path[%s]: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error while reading the config file: %w", err)
		}
	}

	err := v.Unmarshal(c, viper.DecodeHook(cfg.DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.TagName = "yaml"
	})
	if err != nil {
		return fmt.Errorf("error while unmarshaling the config: %w", err)
	}
	if err := cfg.Rationalize(v, c); err != nil {
		return fmt.Errorf("error while rationalizing the config: %w", err)
	}
	if err := cfg.ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func dumpConfig(w io.Writer, c *cfg.Config) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("error while printing the config: %w", err)
	}
	return nil
}

// Execute runs the fixedpool command and exits the process on failure.
func Execute() {
	rootCmd, err := NewRootCmd(Run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error while creating the root command: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
