// Package mailbox buffers the work submissions sent by the peers during the
// collection window of a round.
//
// The window itself belongs to the scheduler: it closes the window by
// cancelling the context given to Collect, and the round then runs with what
// has been collected. The winner does not depend on the order the submissions
// arrive in.
package mailbox

import (
	"context"

	"github.com/dedis/debugtools/channel"
	"go.dedis.ch/synergy"
	"go.dedis.ch/synergy/upow"
)

// Mailbox is a bounded queue of submissions that can be filled concurrently.
type Mailbox struct {
	queue channel.Timed[upow.Submission]
}

// NewMailbox returns a mailbox holding up to size submissions before the
// senders block.
func NewMailbox(size int) Mailbox {
	return Mailbox{
		queue: channel.WithExpiration[upow.Submission](size),
	}
}

// Submit queues the submission.
func (m Mailbox) Submit(sub upow.Submission) {
	m.queue.Send(sub)
}

// Collect receives submissions until it has n of them or the context is done.
// It returns what has been received so far.
func (m Mailbox) Collect(ctx context.Context, n int) []upow.Submission {
	subs := make([]upow.Submission, 0, n)

	for len(subs) < n {
		sub, err := m.queue.NonBlockingReceiveWithContext(ctx)
		if err != nil {
			synergy.Logger.Debug().Err(err).Int("received", len(subs)).Msg("collection window closed")
			break
		}

		subs = append(subs, sub)
	}

	return subs
}
