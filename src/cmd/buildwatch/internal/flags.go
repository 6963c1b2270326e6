// Package internal holds flag helpers shared by the buildwatch commands.
package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildwatch-agent/src/config"
)

// Key returns the viper key of a command-local flag. Local flags are keyed
// by command so that two commands may both define e.g. --provider.
func Key(cmd *cobra.Command, name string) string {
	return cmd.Name() + "." + name
}

// StringFlag initializes a command-local string flag
func StringFlag(cmd *cobra.Command, name, description, value string) {
	cmd.Flags().String(name, value, description)
	viper.BindPFlag(Key(cmd, name), cmd.Flags().Lookup(name)) // nolint: errcheck
}

// BoolFlag initializes a command-local bool flag
func BoolFlag(cmd *cobra.Command, name, description string, value bool) {
	cmd.Flags().Bool(name, value, description)
	viper.BindPFlag(Key(cmd, name), cmd.Flags().Lookup(name)) // nolint: errcheck
}

// IntFlag initializes a command-local int flag
func IntFlag(cmd *cobra.Command, name, description string, value int) {
	cmd.Flags().Int(name, value, description)
	viper.BindPFlag(Key(cmd, name), cmd.Flags().Lookup(name)) // nolint: errcheck
}

// PersistentStringFlag initializes a string flag inherited by subcommands.
// It is bound under its bare name.
func PersistentStringFlag(cmd *cobra.Command, name, description, value string) {
	cmd.PersistentFlags().String(name, value, description)
	viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)) // nolint: errcheck
}

// PersistentBoolFlag initializes a bool flag inherited by subcommands.
func PersistentBoolFlag(cmd *cobra.Command, name, description string, value bool) {
	cmd.PersistentFlags().Bool(name, value, description)
	viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)) // nolint: errcheck
}

// FlagChecker defines the function used to validate flags
type FlagChecker func() error

// CheckFlags validates a slice of flag checkers
func CheckFlags(checkers ...FlagChecker) error {
	var fails []string
	for _, checker := range checkers {
		if err := checker(); err != nil {
			fails = append(fails, err.Error())
		}
	}
	if len(fails) > 0 {
		return errors.New(strings.Join(fails, "\n"))
	}

	return nil
}

// RequireString returns an error if the given setting is an empty string
func RequireString(key string) FlagChecker {
	return func() error {
		if viper.GetString(key) == "" {
			return fmt.Errorf("flag %s can not be an empty string", key)
		}
		return nil
	}
}

// RequireDuration returns an error if the given setting is set but is not a
// positive duration.
func RequireDuration(key string) FlagChecker {
	return func() error {
		v := viper.GetString(key)
		if v == "" {
			return nil
		}
		if _, err := config.ParseDuration(v); err != nil {
			return fmt.Errorf("flag %s: %w", key, err)
		}
		return nil
	}
}

// RequireOneOf returns an error if the given setting is set to a value
// outside allowed.
func RequireOneOf(key string, allowed ...string) FlagChecker {
	return func() error {
		v := viper.GetString(key)
		if v == "" {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("flag %s must be one of %s, got %q", key, strings.Join(allowed, ", "), v)
	}
}
