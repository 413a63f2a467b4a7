package gitrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

const (
	defaultRemoteNameConstant             = "origin"
	openRepositoryErrorTemplateConstant   = "unable to open git repository at %s: %w"
	remoteLookupErrorTemplateConstant     = "unable to read remote %s: %w"
	remoteWithoutURLErrorTemplateConstant = "%w: %s"
	remoteParseFailureTemplateConstant    = "unable to parse remote %s: %w"
)

// ErrRemoteWithoutURL indicates a configured remote lacks any URL.
var ErrRemoteWithoutURL = errors.New("remote has no url")

// ResolveRemoteURL opens the git repository containing repositoryPath and parses the URL of the named remote.
// An empty remote name falls back to origin.
func ResolveRemoteURL(repositoryPath string, remoteName string) (RemoteURL, error) {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		trimmedRemoteName = defaultRemoteNameConstant
	}

	repository, openError := git.PlainOpenWithOptions(repositoryPath, &git.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		return RemoteURL{}, fmt.Errorf(openRepositoryErrorTemplateConstant, repositoryPath, openError)
	}

	remote, remoteError := repository.Remote(trimmedRemoteName)
	if remoteError != nil {
		return RemoteURL{}, fmt.Errorf(remoteLookupErrorTemplateConstant, trimmedRemoteName, remoteError)
	}

	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return RemoteURL{}, fmt.Errorf(remoteWithoutURLErrorTemplateConstant, ErrRemoteWithoutURL, trimmedRemoteName)
	}

	parsedRemote, parseError := ParseRemoteURL(remoteURLs[0])
	if parseError != nil {
		return RemoteURL{}, fmt.Errorf(remoteParseFailureTemplateConstant, trimmedRemoteName, parseError)
	}
	return parsedRemote, nil
}
