package valueobject

type NotificationType string

const (
	NotificationNewProposal               NotificationType = "NEW_PROPOSAL"
	NotificationProposalAccepted          NotificationType = "PROPOSAL_ACCEPTED"
	NotificationProposalRejected          NotificationType = "PROPOSAL_REJECTED"
	NotificationProposalUpdated           NotificationType = "PROPOSAL_UPDATED"
	NotificationNewMessage                NotificationType = "NEW_MESSAGE"
	NotificationContractCreated           NotificationType = "CONTRACT_CREATED"
	NotificationContractFunded            NotificationType = "CONTRACT_FUNDED"
	NotificationContractActivated         NotificationType = "CONTRACT_ACTIVATED"
	NotificationMilestoneSubmitted        NotificationType = "MILESTONE_SUBMITTED"
	NotificationMilestoneApproved         NotificationType = "MILESTONE_APPROVED"
	NotificationMilestoneChangesRequested NotificationType = "MILESTONE_CHANGES_REQUESTED"
	NotificationPaymentReleased           NotificationType = "PAYMENT_RELEASED"
	NotificationContractCompleted         NotificationType = "CONTRACT_COMPLETED"
	NotificationPostLiked                 NotificationType = "POST_LIKED"
	NotificationPostCommented             NotificationType = "POST_COMMENTED"
	NotificationPostReaction              NotificationType = "POST_REACTION"
)
