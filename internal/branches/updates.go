package branches

const defaultUpdateChannelCapacityConstant = 256

// Update is a message delivered from background work to the owner of a Workspace.
type Update interface {
	isWorkspaceUpdate()
}

// ProgressUpdate carries a fetch pipeline progress message.
type ProgressUpdate struct {
	Message string
}

// IdentityUpdate carries the resolved repository identity.
type IdentityUpdate struct {
	Identity RepositoryIdentity
}

// BranchUpdate carries a replacement record for one branch.
type BranchUpdate struct {
	Record BranchRecord
}

// FetchCompletedUpdate reports the end of a fetch run.
type FetchCompletedUpdate struct {
	Result FetchResult
	Err    error
}

// DeletionProgressUpdate reports the deletion attempt about to start.
type DeletionProgressUpdate struct {
	Index      int
	Total      int
	BranchName string
}

// DeletionCompletedUpdate reports the end of a deletion batch.
type DeletionCompletedUpdate struct {
	Results []DeletionResult
}

func (ProgressUpdate) isWorkspaceUpdate()          {}
func (IdentityUpdate) isWorkspaceUpdate()          {}
func (BranchUpdate) isWorkspaceUpdate()            {}
func (FetchCompletedUpdate) isWorkspaceUpdate()    {}
func (DeletionProgressUpdate) isWorkspaceUpdate()  {}
func (DeletionCompletedUpdate) isWorkspaceUpdate() {}

// UpdateChannel is the bounded queue between background work and the single owner.
// Senders block while the queue is full.
type UpdateChannel struct {
	updates chan Update
}

// NewUpdateChannel constructs an UpdateChannel; a non-positive capacity uses the default of 256.
func NewUpdateChannel(capacity int) *UpdateChannel {
	if capacity <= 0 {
		capacity = defaultUpdateChannelCapacityConstant
	}
	return &UpdateChannel{updates: make(chan Update, capacity)}
}

// Send enqueues an update.
func (channel *UpdateChannel) Send(update Update) {
	channel.updates <- update
}

// Updates exposes the receive side for the owner.
func (channel *UpdateChannel) Updates() <-chan Update {
	return channel.updates
}

// channelSink forwards pipeline and deletion callbacks into an UpdateChannel.
type channelSink struct {
	channel *UpdateChannel
}

func (sink channelSink) ReportProgress(message string) {
	sink.channel.Send(ProgressUpdate{Message: message})
}

func (sink channelSink) ReceiveIdentity(identity RepositoryIdentity) {
	sink.channel.Send(IdentityUpdate{Identity: identity})
}

func (sink channelSink) ReceiveBranch(record BranchRecord) {
	sink.channel.Send(BranchUpdate{Record: record})
}

func (sink channelSink) ReportDeletionProgress(index int, total int, branchName string) {
	sink.channel.Send(DeletionProgressUpdate{Index: index, Total: total, BranchName: branchName})
}
