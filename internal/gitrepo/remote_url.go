package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	schemeSeparatorConstant             = "://"
	scpHostPathSeparatorConstant        = ":"
	scpUserSeparatorConstant            = "@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
	unsupportedSchemeMessageConstant    = "unsupported remote scheme"
	missingOwnerMessageConstant         = "remote path must be owner/repository"
)

// RemoteProtocol is the transport a remote URL uses.
type RemoteProtocol string

// Supported remote protocols. http remotes are reported as https.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL is a GitHub remote broken into host and owner/repository.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// NameWithOwner renders the owner/repository identifier GitHub uses.
func (remote RemoteURL) NameWithOwner() string {
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL accepts scheme URLs (ssh, https, http) and scp-like git@host:owner/repo remotes.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	if strings.Contains(trimmedRemote, schemeSeparatorConstant) {
		return parseSchemeRemote(trimmedRemote)
	}
	return parseScpRemote(trimmedRemote)
}

func parseSchemeRemote(remote string) (RemoteURL, error) {
	parsedURL, parseError := url.Parse(remote)
	if parseError != nil || len(parsedURL.Hostname()) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	var protocol RemoteProtocol
	switch strings.ToLower(parsedURL.Scheme) {
	case "ssh", "git+ssh":
		protocol = RemoteProtocolSSH
	case "https", "http":
		protocol = RemoteProtocolHTTPS
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: unsupportedSchemeMessageConstant}
	}

	return buildRemoteURL(remote, protocol, parsedURL.Hostname(), parsedURL.Path)
}

func parseScpRemote(remote string) (RemoteURL, error) {
	userAndHost, path, found := strings.Cut(remote, scpHostPathSeparatorConstant)
	if !found || !strings.Contains(userAndHost, scpUserSeparatorConstant) {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	host := userAndHost[strings.LastIndex(userAndHost, scpUserSeparatorConstant)+1:]
	if len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return buildRemoteURL(remote, RemoteProtocolSSH, host, path)
}

func buildRemoteURL(remote string, protocol RemoteProtocol, host string, path string) (RemoteURL, error) {
	owner, repository, found := strings.Cut(strings.Trim(path, pathSeparatorConstant), pathSeparatorConstant)
	repository = strings.TrimSuffix(repository, gitSuffixConstant)
	if !found || len(owner) == 0 || len(repository) == 0 || strings.Contains(repository, pathSeparatorConstant) {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: missingOwnerMessageConstant}
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: repository}, nil
}
