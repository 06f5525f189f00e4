package network

import "sync"

// mailbox is an unbounded FIFO queue of messages for a single node. Pushing
// never blocks, so a node sending while its own mailbox is full can't
// deadlock the mesh. A single pump goroutine delivers messages in the order
// they were pushed.
type mailbox struct {
	mu     sync.Mutex
	queue  []Message
	closed bool

	signal chan struct{}
	out    chan Message
	shut   chan struct{}
	wg     sync.WaitGroup
}

// newMailbox constructs a mailbox and starts its pump goroutine.
func newMailbox() *mailbox {
	mb := mailbox{
		signal: make(chan struct{}, 1),
		out:    make(chan Message),
		shut:   make(chan struct{}),
	}

	mb.wg.Add(1)
	go func() {
		defer mb.wg.Done()
		mb.pump()
	}()

	return &mb
}

// push queues the message for delivery. It reports false if the mailbox
// has been closed.
func (mb *mailbox) push(msg Message) bool {
	mb.mu.Lock()
	{
		if mb.closed {
			mb.mu.Unlock()
			return false
		}
		mb.queue = append(mb.queue, msg)
	}
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}

	return true
}

// pending returns the number of messages waiting to be delivered.
func (mb *mailbox) pending() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return len(mb.queue)
}

// close stops the pump and closes the out channel. Messages still queued
// are dropped.
func (mb *mailbox) close() {
	mb.mu.Lock()
	{
		if mb.closed {
			mb.mu.Unlock()
			return
		}
		mb.closed = true
	}
	mb.mu.Unlock()

	close(mb.shut)
	mb.wg.Wait()
}

// pump moves messages from the queue to the out channel.
func (mb *mailbox) pump() {
	defer close(mb.out)

	for {
		mb.mu.Lock()
		if len(mb.queue) == 0 {
			mb.mu.Unlock()

			select {
			case <-mb.signal:
				continue
			case <-mb.shut:
				return
			}
		}

		msg := mb.queue[0]
		mb.queue[0] = Message{}
		mb.queue = mb.queue[1:]
		mb.mu.Unlock()

		select {
		case mb.out <- msg:
		case <-mb.shut:
			return
		}
	}
}
