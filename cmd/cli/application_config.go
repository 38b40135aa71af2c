package cli

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/autopush/internal/autopush"
	"github.com/tyemirov/autopush/internal/fileprocess"
	"github.com/tyemirov/autopush/internal/gitsync"
	"github.com/tyemirov/autopush/internal/utils"
)

const (
	commonConfigurationKeyConstant            = "common"
	autoPushConfigurationKeyConstant          = "autopush"
	processConfigurationKeyConstant           = "process"
	commonLogLevelConfigKeyConstant           = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant          = commonConfigurationKeyConstant + ".log_format"
	autoPushProgramConfigKeyConstant          = autoPushConfigurationKeyConstant + ".program"
	autoPushArgumentsConfigKeyConstant        = autoPushConfigurationKeyConstant + ".arguments"
	autoPushRemoteConfigKeyConstant           = autoPushConfigurationKeyConstant + ".remote"
	autoPushBranchConfigKeyConstant           = autoPushConfigurationKeyConstant + ".branch"
	autoPushWorkingDirectoryConfigKeyConstant = autoPushConfigurationKeyConstant + ".working_directory"
	processInputPathConfigKeyConstant         = processConfigurationKeyConstant + ".input_path"
	processLogPathConfigKeyConstant           = processConfigurationKeyConstant + ".log_path"
	processDelayConfigKeyConstant             = processConfigurationKeyConstant + ".delay"
	configurationSourceHeaderTemplateConstant = "# loaded from %s\n"
	configurationRenderErrorTemplateConstant  = "unable to render configuration: %w"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration `mapstructure:"common" yaml:"common"`
	AutoPush AutoPushConfiguration          `mapstructure:"autopush" yaml:"autopush"`
	Process  ProcessConfiguration           `mapstructure:"process" yaml:"process"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// AutoPushConfiguration selects the child program and where its changes are pushed.
type AutoPushConfiguration struct {
	Program          string   `mapstructure:"program" yaml:"program"`
	Arguments        []string `mapstructure:"arguments" yaml:"arguments"`
	Remote           string   `mapstructure:"remote" yaml:"remote"`
	Branch           string   `mapstructure:"branch" yaml:"branch"`
	WorkingDirectory string   `mapstructure:"working_directory" yaml:"working_directory"`
}

// ProcessConfiguration names the files process-file reads and appends to.
type ProcessConfiguration struct {
	InputPath string        `mapstructure:"input_path" yaml:"input_path"`
	LogPath   string        `mapstructure:"log_path" yaml:"log_path"`
	Delay     time.Duration `mapstructure:"delay" yaml:"delay"`
}

func defaultConfigurationValues() map[string]any {
	return map[string]any{
		commonLogLevelConfigKeyConstant:           string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:          string(utils.LogFormatConsole),
		autoPushProgramConfigKeyConstant:          autopush.DefaultProgram,
		autoPushArgumentsConfigKeyConstant:        []string{autopush.DefaultArgument},
		autoPushRemoteConfigKeyConstant:           gitsync.DefaultRemote,
		autoPushBranchConfigKeyConstant:           gitsync.DefaultBranch,
		autoPushWorkingDirectoryConfigKeyConstant: "",
		processInputPathConfigKeyConstant:         fileprocess.DefaultInputPath,
		processLogPathConfigKeyConstant:           fileprocess.DefaultLogPath,
		processDelayConfigKeyConstant:             fileprocess.DefaultDelay.String(),
	}
}

func renderConfiguration(writer io.Writer, configuration ApplicationConfiguration, sourcePath string) error {
	if len(sourcePath) > 0 {
		if _, writeError := fmt.Fprintf(writer, configurationSourceHeaderTemplateConstant, sourcePath); writeError != nil {
			return fmt.Errorf(configurationRenderErrorTemplateConstant, writeError)
		}
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(configuration); encodeError != nil {
		return fmt.Errorf(configurationRenderErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(configurationRenderErrorTemplateConstant, closeError)
	}
	return nil
}
