package version_test

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/autopush/internal/version"
)

const testRevisionConstant = "0123456789abcdef0123456789abcdef01234567"

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

func TestDetectorVersion(testInstance *testing.T) {
	testCases := []struct {
		name            string
		provider        stubBuildInfoProvider
		expectedVersion string
	}{
		{
			name:            "tagged_module_version",
			provider:        stubBuildInfoProvider{available: true, info: &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}}},
			expectedVersion: "v1.4.0",
		},
		{
			name: "development_build_uses_revision",
			provider: stubBuildInfoProvider{available: true, info: &debug.BuildInfo{
				Main:     debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: testRevisionConstant}, {Key: "vcs.modified", Value: "false"}},
			}},
			expectedVersion: "0123456789ab",
		},
		{
			name: "modified_tree_is_marked_dirty",
			provider: stubBuildInfoProvider{available: true, info: &debug.BuildInfo{
				Settings: []debug.BuildSetting{{Key: "vcs.modified", Value: "true"}, {Key: "vcs.revision", Value: "abc123"}},
			}},
			expectedVersion: "abc123-dirty",
		},
		{
			name:            "development_build_without_revision",
			provider:        stubBuildInfoProvider{available: true, info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}},
			expectedVersion: "unknown",
		},
		{
			name:            "build_info_unavailable",
			provider:        stubBuildInfoProvider{},
			expectedVersion: "unknown",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedVersion, version.NewDetector(testCase.provider).Version())
		})
	}
}

func TestDetectNeverReturnsEmpty(testInstance *testing.T) {
	require.NotEmpty(testInstance, version.Detect())

	var detector *version.Detector
	require.Equal(testInstance, "unknown", detector.Version())
}
