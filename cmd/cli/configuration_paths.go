package cli

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigurationSearchPathConstant             = "."
	userConfigurationDirectoryNameConstant             = ".autopush"
	xdgConfigurationDirectoryNameConstant              = "autopush"
	xdgConfigHomeEnvironmentVariableConstant           = "XDG_CONFIG_HOME"
	configurationSearchPathEnvironmentVariableConstant = "AUTOPUSH_CONFIG_SEARCH_PATH"
)

type environmentLookup func(name string) string

// configurationSearchPaths lists the directories searched for config.yaml. An
// AUTOPUSH_CONFIG_SEARCH_PATH list replaces the defaults entirely.
func configurationSearchPaths(lookupEnvironment environmentLookup) []string {
	if overridePaths := splitPathList(lookupEnvironment(configurationSearchPathEnvironmentVariableConstant)); overridePaths != nil {
		if len(overridePaths) == 0 {
			return []string{defaultConfigurationSearchPathConstant}
		}
		return overridePaths
	}

	candidates := []string{defaultConfigurationSearchPathConstant}
	candidates = append(candidates, joinWhenPresent(lookupEnvironment(xdgConfigHomeEnvironmentVariableConstant), xdgConfigurationDirectoryNameConstant))
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		candidates = append(candidates, joinWhenPresent(userConfigurationDirectory, xdgConfigurationDirectoryNameConstant))
	}
	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil {
		candidates = append(candidates, joinWhenPresent(homeDirectory, userConfigurationDirectoryNameConstant))
	}

	seen := make(map[string]struct{}, len(candidates))
	searchPaths := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		if _, duplicate := seen[candidate]; duplicate {
			continue
		}
		seen[candidate] = struct{}{}
		searchPaths = append(searchPaths, candidate)
	}
	return searchPaths
}

// splitPathList returns nil for an unset list and an empty slice for a list of blanks.
func splitPathList(rawList string) []string {
	if len(strings.TrimSpace(rawList)) == 0 {
		return nil
	}
	entries := make([]string, 0)
	for _, entry := range filepath.SplitList(rawList) {
		if trimmedEntry := strings.TrimSpace(entry); len(trimmedEntry) > 0 {
			entries = append(entries, trimmedEntry)
		}
	}
	return entries
}

func joinWhenPresent(baseDirectory string, directoryName string) string {
	trimmedBase := strings.TrimSpace(baseDirectory)
	if len(trimmedBase) == 0 {
		return ""
	}
	return filepath.Join(trimmedBase, directoryName)
}
