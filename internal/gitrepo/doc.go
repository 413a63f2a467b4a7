// Package gitrepo reads repository coordinates from local git checkouts.
//
// ParseRemoteURL understands ssh and https remote forms, and ResolveRemoteURL
// uses go-git to locate the enclosing repository and read a named remote.
package gitrepo
