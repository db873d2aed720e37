package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateAndApproveMessage] = (*CreateAndApproveCommand)(nil)
	_ gocmd.Commander[ApproveMessage]          = (*ApproveCommand)(nil)
	_ gocmd.Commander[RejectMessage]           = (*RejectCommand)(nil)
	_ gocmd.Commander[CloseMessage]            = (*CloseCommand)(nil)
)
