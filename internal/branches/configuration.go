package branches

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Gateway kinds accepted by the gateway configuration key.
const (
	GatewayKindCLI = "cli"
	GatewayKindAPI = "api"
)

const (
	defaultRemoteNameConstant            = "origin"
	configurationKeySeparatorConstant    = "."
	gatewayConfigurationKey              = "gateway"
	remoteConfigurationKey               = "remote"
	repositoryConfigurationKey           = "repository"
	protectedPatternConfigurationKey     = "protected_pattern"
	protectedBranchesConfigurationKey    = "protected_branches"
	workerCountConfigurationKey          = "worker_count"
	pullRequestLimitConfigurationKey     = "pull_request_limit"
	progressIntervalConfigurationKey     = "progress_interval"
	updateBufferConfigurationKey         = "update_buffer"
	refreshAfterDeletionConfigurationKey = "refresh_after_deletion"
	identityTimeoutConfigurationKey      = "timeouts.identity"
	listingTimeoutConfigurationKey       = "timeouts.listing"
	pullRequestsTimeoutConfigurationKey  = "timeouts.pull_requests"
	compareTimeoutConfigurationKey       = "timeouts.compare"
	deleteTimeoutConfigurationKey        = "timeouts.delete"
	invalidProtectedPatternTemplate      = "invalid protected_pattern %q: %w"
	unsupportedGatewayKindTemplate       = "unsupported gateway %q (expected %s or %s)"
	protectedBranchAlternationSeparator  = "|"
	protectedBranchCombinedPatternFormat = "(?:%s)|^(?:%s)$"
)

// TimeoutConfiguration lists the per-call deadlines applied to remote operations.
type TimeoutConfiguration struct {
	Identity     time.Duration `mapstructure:"identity"`
	Listing      time.Duration `mapstructure:"listing"`
	PullRequests time.Duration `mapstructure:"pull_requests"`
	Compare      time.Duration `mapstructure:"compare"`
	Delete       time.Duration `mapstructure:"delete"`
}

// CommandConfiguration captures the branches section of the configuration file.
type CommandConfiguration struct {
	Gateway              string               `mapstructure:"gateway"`
	RemoteName           string               `mapstructure:"remote"`
	Repository           string               `mapstructure:"repository"`
	ProtectedPattern     string               `mapstructure:"protected_pattern"`
	ProtectedBranches    []string             `mapstructure:"protected_branches"`
	WorkerCount          int                  `mapstructure:"worker_count"`
	PullRequestLimit     int                  `mapstructure:"pull_request_limit"`
	ProgressInterval     int                  `mapstructure:"progress_interval"`
	UpdateBuffer         int                  `mapstructure:"update_buffer"`
	RefreshAfterDeletion bool                 `mapstructure:"refresh_after_deletion"`
	Timeouts             TimeoutConfiguration `mapstructure:"timeouts"`
}

// DefaultCommandConfiguration provides baseline configuration values.
func DefaultCommandConfiguration() CommandConfiguration {
	defaultTimeouts := DefaultTimeouts()
	return CommandConfiguration{
		Gateway:              GatewayKindCLI,
		RemoteName:           defaultRemoteNameConstant,
		Repository:           "",
		ProtectedPattern:     defaultProtectedPatternConstant,
		ProtectedBranches:    nil,
		WorkerCount:          defaultWorkerCountConstant,
		PullRequestLimit:     defaultPullRequestLimitConstant,
		ProgressInterval:     defaultProgressIntervalConstant,
		UpdateBuffer:         defaultUpdateChannelCapacityConstant,
		RefreshAfterDeletion: true,
		Timeouts: TimeoutConfiguration{
			Identity:     defaultTimeouts.Identity,
			Listing:      defaultTimeouts.Listing,
			PullRequests: defaultTimeouts.PullRequests,
			Compare:      defaultTimeouts.Compare,
			Delete:       defaultTimeouts.Delete,
		},
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys rooted at configurationPrefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefixed := func(key string) string {
		trimmedPrefix := strings.TrimSpace(configurationPrefix)
		if len(trimmedPrefix) == 0 {
			return key
		}
		return trimmedPrefix + configurationKeySeparatorConstant + key
	}

	return map[string]any{
		prefixed(gatewayConfigurationKey):              defaults.Gateway,
		prefixed(remoteConfigurationKey):               defaults.RemoteName,
		prefixed(repositoryConfigurationKey):           defaults.Repository,
		prefixed(protectedPatternConfigurationKey):     defaults.ProtectedPattern,
		prefixed(protectedBranchesConfigurationKey):    []string{},
		prefixed(workerCountConfigurationKey):          defaults.WorkerCount,
		prefixed(pullRequestLimitConfigurationKey):     defaults.PullRequestLimit,
		prefixed(progressIntervalConfigurationKey):     defaults.ProgressInterval,
		prefixed(updateBufferConfigurationKey):         defaults.UpdateBuffer,
		prefixed(refreshAfterDeletionConfigurationKey): defaults.RefreshAfterDeletion,
		prefixed(identityTimeoutConfigurationKey):      defaults.Timeouts.Identity,
		prefixed(listingTimeoutConfigurationKey):       defaults.Timeouts.Listing,
		prefixed(pullRequestsTimeoutConfigurationKey):  defaults.Timeouts.PullRequests,
		prefixed(compareTimeoutConfigurationKey):       defaults.Timeouts.Compare,
		prefixed(deleteTimeoutConfigurationKey):        defaults.Timeouts.Delete,
	}
}

// Sanitize trims string values and fills gaps with defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Gateway = strings.ToLower(strings.TrimSpace(configuration.Gateway))
	if len(sanitized.Gateway) == 0 {
		sanitized.Gateway = defaults.Gateway
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaults.RemoteName
	}
	sanitized.Repository = strings.TrimSpace(configuration.Repository)
	sanitized.ProtectedPattern = strings.TrimSpace(configuration.ProtectedPattern)
	if len(sanitized.ProtectedPattern) == 0 {
		sanitized.ProtectedPattern = defaults.ProtectedPattern
	}
	sanitized.ProtectedBranches = sanitizeNames(configuration.ProtectedBranches)

	return sanitized
}

// ValidateGateway reports an error for gateway kinds other than cli and api.
func (configuration CommandConfiguration) ValidateGateway() error {
	switch configuration.Sanitize().Gateway {
	case GatewayKindCLI, GatewayKindAPI:
		return nil
	default:
		return fmt.Errorf(unsupportedGatewayKindTemplate, configuration.Gateway, GatewayKindCLI, GatewayKindAPI)
	}
}

// PipelineOptions converts the configuration into pipeline settings. Names listed in
// protected_branches are protected in addition to names matching protected_pattern.
func (configuration CommandConfiguration) PipelineOptions() (PipelineOptions, error) {
	sanitized := configuration.Sanitize()

	patternSource := sanitized.ProtectedPattern
	if len(sanitized.ProtectedBranches) > 0 {
		quotedNames := make([]string, 0, len(sanitized.ProtectedBranches))
		for _, branchName := range sanitized.ProtectedBranches {
			quotedNames = append(quotedNames, regexp.QuoteMeta(branchName))
		}
		patternSource = fmt.Sprintf(protectedBranchCombinedPatternFormat, patternSource, strings.Join(quotedNames, protectedBranchAlternationSeparator))
	}

	protectedPattern, compileError := regexp.Compile(patternSource)
	if compileError != nil {
		return PipelineOptions{}, fmt.Errorf(invalidProtectedPatternTemplate, sanitized.ProtectedPattern, compileError)
	}

	return PipelineOptions{
		ProtectedPattern: protectedPattern,
		WorkerCount:      sanitized.WorkerCount,
		PullRequestLimit: sanitized.PullRequestLimit,
		ProgressInterval: sanitized.ProgressInterval,
		Timeouts: Timeouts{
			Identity:     sanitized.Timeouts.Identity,
			Listing:      sanitized.Timeouts.Listing,
			PullRequests: sanitized.Timeouts.PullRequests,
			Compare:      sanitized.Timeouts.Compare,
			Delete:       sanitized.Timeouts.Delete,
		},
	}, nil
}

func sanitizeNames(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
