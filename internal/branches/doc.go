// Package branches discovers, reports, and deletes the remote branches of a GitHub repository.
//
// FetchPipeline enumerates every branch through a RepositoryGateway and enriches the records in
// stages. Workspace owns the Registry and ViewModel and folds Update values from background work
// into them. DeletionCoordinator removes branches one at a time after a confirmation.
// CommandBuilder exposes the list and prune Cobra commands on top of these pieces.
package branches
