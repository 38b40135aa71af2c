package utils

import "context"

type loadedConfigurationKey struct{}

// WithLoadedConfiguration attaches the configuration metadata of the current run to parentContext.
func WithLoadedConfiguration(parentContext context.Context, metadata LoadedConfiguration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, loadedConfigurationKey{}, metadata)
}

// LoadedConfigurationFrom returns the metadata attached by WithLoadedConfiguration. It reports
// false when none was attached or when no configuration file was merged.
func LoadedConfigurationFrom(executionContext context.Context) (LoadedConfiguration, bool) {
	if executionContext == nil {
		return LoadedConfiguration{}, false
	}
	metadata, attached := executionContext.Value(loadedConfigurationKey{}).(LoadedConfiguration)
	return metadata, attached && len(metadata.ConfigFileUsed) > 0
}
