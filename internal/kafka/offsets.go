package kafka

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

type partitionKey struct {
	topic     string
	partition int
}

// offsetTracker remembers fetched messages per partition, in fetch order,
// and releases only the longest prefix that has been handled. A message
// that keeps failing holds back every later offset of its partition, so a
// restart or rebalance redelivers it.
type offsetTracker struct {
	mu    sync.Mutex
	parts map[partitionKey]*partitionLog
}

type partitionLog struct {
	pending []kafka.Message
	done    map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: map[partitionKey]*partitionLog{}}
}

func (t *offsetTracker) track(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := partitionKey{m.Topic, m.Partition}
	p, ok := t.parts[k]
	if !ok {
		p = &partitionLog{done: map[int64]bool{}}
		t.parts[k] = p
	}
	p.pending = append(p.pending, m)
}

// ack marks m handled and, when that extends the handled prefix, calls
// commit with the last message of the prefix. commit runs under the
// tracker lock so commits of one partition never go backwards.
func (t *offsetTracker) ack(m kafka.Message, commit func(kafka.Message) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.parts[partitionKey{m.Topic, m.Partition}]
	if !ok {
		return nil
	}
	p.done[m.Offset] = true

	var last *kafka.Message
	n := 0
	for n < len(p.pending) && p.done[p.pending[n].Offset] {
		last = &p.pending[n]
		n++
	}
	if last == nil {
		return nil
	}
	if err := commit(*last); err != nil {
		return err
	}
	for _, done := range p.pending[:n] {
		delete(p.done, done.Offset)
	}
	p.pending = p.pending[n:]
	return nil
}
