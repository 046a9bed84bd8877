package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/sleepwake/pkg/hal"
)

// LightSleep blocks until any armed source latches a wake or ctx is cancelled.
// A latch set before entry returns immediately.
func (b *Board) LightSleep(ctx context.Context) error {
	b.mu.Lock()
	if b.anyLatchLocked() {
		b.mu.Unlock()
		return nil
	}

	// Drop a stale signal from a cycle whose latches were already cleared.
	select {
	case <-b.wakeCh:
	default:
	}

	timerC, stopTimer := b.timerChannelLocked()
	b.mu.Unlock()

	if stopTimer != nil {
		defer stopTimer()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timerC:
		b.latchTimer()
		return nil
	case <-b.wakeCh:
		return nil
	}
}

// DeepSleep powers the board down until a wake source fires. A qualifying wake
// persists the handoff for the next boot and invokes the restart hook; the
// call then keeps blocking, as the reset is the only way out of deep sleep.
// Cancelling ctx stands in for an external reset and is the only path that
// returns to the caller.
func (b *Board) DeepSleep(ctx context.Context) error {
	b.mu.Lock()
	if b.anyLatchLocked() {
		b.mu.Unlock()
		return b.completeDeepWake(ctx)
	}

	select {
	case <-b.wakeCh:
	default:
	}

	timerC, stopTimer := b.timerChannelLocked()
	b.mu.Unlock()

	if stopTimer != nil {
		defer stopTimer()
	}

	select {
	case <-ctx.Done():
		return b.completeExternalReset(ctx)
	case <-timerC:
		b.latchTimer()
		return b.completeDeepWake(ctx)
	case <-b.wakeCh:
		return b.completeDeepWake(ctx)
	}
}

// timerChannelLocked builds the wake-timer channel for one sleep entry. Both
// returns are nil when no timer is armed; a nil channel never selects.
func (b *Board) timerChannelLocked() (<-chan time.Time, func()) {
	if !b.timerArmed {
		return nil, nil
	}

	t := time.NewTimer(time.Until(b.timerDeadline))

	return t.C, func() { t.Stop() }
}

func (b *Board) latchTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timerLatched = true
}

// completeDeepWake persists the wake handoff with the deep-sleep-alarm cause,
// invokes the restart hook and parks the goroutine until ctx releases it.
func (b *Board) completeDeepWake(ctx context.Context) error {
	b.mu.Lock()
	b.handedOff = true
	state := b.persistentStateLocked(b.wakeHandoffLocked())
	b.mu.Unlock()

	if err := b.saveState(state); err != nil {
		return fmt.Errorf("persist wake state: %w", err)
	}

	if b.restart != nil {
		b.restart()
	}

	<-ctx.Done()

	return ctx.Err()
}

// completeExternalReset records the cancellation as an external reset and
// returns the ctx error.
func (b *Board) completeExternalReset(ctx context.Context) error {
	b.mu.Lock()
	b.handedOff = true
	state := b.persistentStateLocked(&wakeHandoff{Cause: hal.ResetExternal.String()})
	b.mu.Unlock()

	if err := b.saveState(state); err != nil {
		return fmt.Errorf("persist reset state: %w", err)
	}

	return ctx.Err()
}
