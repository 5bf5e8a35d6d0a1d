// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	applog "spectro/internal/log"
	"spectro/internal/worker"
)

// defaultSendInterval is used when the configured interval is invalid.
const defaultSendInterval = 33 * time.Millisecond

/*
Packet layout (BigEndian):

| Field           | Type      | Size (bytes)            |
|-----------------|-----------|-------------------------|
| Sequence number | uint32    | 4                       |
| Timestamp       | int64     | 8, nanoseconds since epoch |
| Value count     | uint16    | 2                       |
| PSD values      | []float32 | count * 4               |
*/
const packetHeaderSize = 4 + 8 + 2

// Publisher is a worker sink that retains the most recent spectral record
// and ships it over UDP on a fixed cadence. Records arriving faster than
// the send interval replace the pending one; listeners always get the
// freshest estimate.
type Publisher struct {
	sender   *Sender
	interval time.Duration
	latest   atomic.Pointer[worker.Record]

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan across Start/Stop

	sequenceNum uint32

	// Reused across packets; the publisher goroutine is the only writer.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher over sender. It does not start sending
// until Start is called.
func NewPublisher(interval time.Duration, sender *Sender) *Publisher {
	if interval <= 0 {
		applog.Warnf("UDP: invalid send interval, defaulting to %s", defaultSendInterval)
		interval = defaultSendInterval
	}
	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}
}

// OnRecord retains rec as the next packet payload.
func (p *Publisher) OnRecord(rec worker.Record) {
	p.latest.Store(&rec)
}

func (p *Publisher) OnSettings(worker.SettingsUpdate) {}

func (p *Publisher) OnProgress(int, float64) {}

// OnTerminated clears the retained record so listeners stop receiving a
// stale spectrum after the worker ends.
func (p *Publisher) OnTerminated(int, worker.Reason) {
	p.latest.Store(nil)
}

// Start launches the send loop. Calling Start on a running publisher is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP: Start called but publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDP: publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.sendLatest()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop halts the send loop and waits for it to exit. Safe to call more
// than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDP: publisher stopped")
	return nil
}

// sendLatest packs the retained record and ships it. No record, no packet.
func (p *Publisher) sendLatest() {
	rec := p.latest.Load()
	if rec == nil {
		return
	}

	if cap(p.f32Buffer) < len(rec.PSD) {
		p.f32Buffer = make([]float32, len(rec.PSD))
	}
	p.f32Buffer = p.f32Buffer[:len(rec.PSD)]
	for i, v := range rec.PSD {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		applog.Errorf("UDP: error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Warnf("UDP: error sending packet %d: %v", p.sequenceNum, err)
		return
	}
	applog.Debugf("UDP: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

// Close stops the publisher. The sender is closed separately by its owner.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ worker.Sink = (*Publisher)(nil)
