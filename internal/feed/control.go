package feed

import (
	"errors"
	"fmt"
	"sync"

	"copywatch/internal/domain"
	"copywatch/internal/usecase"
)

// ErrBusy means a review action on the record is already in flight; the
// control stays untouched until that action resolves.
var ErrBusy = errors.New("review action already in flight")

// Action is the server operation the control decided on.
type Action int

const (
	ActionApply Action = iota
	ActionUndo
)

// Control models the optimistic review state of one displayed record:
// {Ready, Fixed, NoAction, Pending(target)}. An apply shows the target
// status immediately; a failure reverts to the prior status.
type Control struct {
	mu      sync.Mutex
	status  domain.ReviewStatus
	prior   domain.ReviewStatus
	pending bool
	action  Action
	panes   []*Pane
}

// NewControl starts from the record's server-confirmed status.
func NewControl(status domain.ReviewStatus) *Control {
	return &Control{status: status}
}

// AttachPane registers a comparison pane to collapse on a successful
// transition.
func (c *Control) AttachPane(p *Pane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panes = append(c.panes, p)
}

// Begin starts a review action toward the target status. Clicking the
// status the record already has requests an undo; anything else applies the
// target optimistically. The decision is keyed by the currently displayed
// status, the server re-decides from its own stored status.
func (c *Control) Begin(target domain.ReviewStatus) (Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return 0, ErrBusy
	}
	if target != domain.StatusFixed && target != domain.StatusNoAction {
		return 0, fmt.Errorf("invalid target status %d", target)
	}

	c.prior = c.status
	if c.status == target {
		c.action = ActionUndo
	} else {
		c.action = ActionApply
		c.status = target
	}
	c.pending = true

	return c.action, nil
}

// Resolve commits the pending action after server success and collapses any
// open comparison panes.
func (c *Control) Resolve() {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return
	}
	if c.action == ActionUndo {
		c.status = domain.StatusReady
	}
	c.pending = false
	panes := append([]*Pane(nil), c.panes...)
	c.mu.Unlock()

	for _, pane := range panes {
		pane.Close()
	}
}

// Fail reverts the pending action after server failure and reports whether
// the caller must force a full reload (the blocked case, where the
// server-rendered blocked state takes over).
func (c *Control) Fail(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		c.status = c.prior
		c.pending = false
	}

	return errors.Is(err, usecase.ErrBlocked)
}

// Status returns the currently displayed status.
func (c *Control) Status() domain.ReviewStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Busy reports whether an action is pending.
func (c *Control) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
