// Package flags reads typed flag values from Cobra commands and reports whether the user set them.
package flags

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrFlagNotDefined indicates that the requested flag is not present on the command or its ancestors.
var ErrFlagNotDefined = errors.New("flag not defined")

type valueGetter[Value any] func(flagSet *pflag.FlagSet, name string) (Value, error)

// StringFlag returns the flag value and whether it was set on the command line.
func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	return typedFlag(command, name, (*pflag.FlagSet).GetString)
}

// StringArrayFlag returns the accumulated values of a repeatable flag. Commas inside a value are kept.
func StringArrayFlag(command *cobra.Command, name string) ([]string, bool, error) {
	return typedFlag(command, name, (*pflag.FlagSet).GetStringArray)
}

func DurationFlag(command *cobra.Command, name string) (time.Duration, bool, error) {
	return typedFlag(command, name, (*pflag.FlagSet).GetDuration)
}

func typedFlag[Value any](command *cobra.Command, name string, getValue valueGetter[Value]) (Value, bool, error) {
	var zeroValue Value
	owningSet, definition := locateFlag(command, name)
	if definition == nil {
		return zeroValue, false, ErrFlagNotDefined
	}
	value, getError := getValue(owningSet, name)
	if getError != nil {
		return zeroValue, false, getError
	}
	return value, definition.Changed, nil
}

// locateFlag walks from command up to the root, checking local flags before persistent ones.
func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	for current := command; current != nil; current = current.Parent() {
		for _, flagSet := range []*pflag.FlagSet{current.Flags(), current.PersistentFlags()} {
			if definition := flagSet.Lookup(name); definition != nil {
				return flagSet, definition
			}
		}
	}
	return nil, nil
}
