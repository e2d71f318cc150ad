package modem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sim7000-go/sim7000/modem"
)

func TestRingChannelDeliversInOrder(t *testing.T) {
	r := modem.NewRingChannel[int](modem.RingCapacity)
	for i := 0; i < 3; i++ {
		r.Send(i)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v, err := r.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestRingChannelLagged(t *testing.T) {
	// Overfill a capacity-8 ring: the receiver sees one Lagged error, then
	// delivery resumes with the oldest surviving value.
	r := modem.NewRingChannel[int](modem.RingCapacity)
	for i := 0; i < modem.RingCapacity+1; i++ {
		r.Send(i)
	}
	ctx := context.Background()

	_, err := r.Recv(ctx)
	require.ErrorIs(t, err, modem.ErrLagged)

	v, err := r.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRingChannelRecvCancelled(t *testing.T) {
	r := modem.NewRingChannel[int](modem.RingCapacity)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRingChannelDrain(t *testing.T) {
	r := modem.NewRingChannel[int](modem.RingCapacity)
	r.Send(1)
	r.Send(2)
	r.Drain()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlotClaimRelease(t *testing.T) {
	s := modem.NewSlot(42)
	v, ok := s.Claim()
	require.True(t, ok)
	assert.Equal(t, 42, *v)

	_, ok = s.Claim()
	assert.False(t, ok, "second claim must fail while held")

	assert.True(t, s.Release())
	assert.False(t, s.Release(), "releasing an unclaimed slot reports misuse")

	_, ok = s.Claim()
	assert.True(t, ok, "slot is claimable again after release")
}

func TestStateSignalLatchesValue(t *testing.T) {
	s := modem.NewStateSignal[int]()
	assert.Equal(t, 0, s.Get())
	s.Signal(7)
	assert.Equal(t, 7, s.Get())
}

func TestStateSignalWaitWakesOnSignal(t *testing.T) {
	s := modem.NewStateSignal[int]()
	done := make(chan int, 1)
	go func() {
		v, err := s.Wait(context.Background())
		if err == nil {
			done <- v
		}
	}()
	time.Sleep(10 * time.Millisecond)
	s.Signal(9)
	select {
	case v := <-done:
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestStateSignalCompareWaitImmediate(t *testing.T) {
	s := modem.NewStateSignal[int]()
	s.Signal(5)
	v, err := s.CompareWait(context.Background(), func(v int) bool { return v == 5 })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestStateSignalCompareWaitBlocksUntilMatch(t *testing.T) {
	s := modem.NewStateSignal[int]()
	done := make(chan int, 1)
	go func() {
		v, err := s.CompareWait(context.Background(), func(v int) bool { return v >= 3 })
		if err == nil {
			done <- v
		}
	}()
	s.Signal(1)
	s.Signal(2)
	s.Signal(3)
	select {
	case v := <-done:
		assert.GreaterOrEqual(t, v, 3)
	case <-time.After(time.Second):
		t.Fatal("predicate never satisfied")
	}
}

func TestPipeRoundTrip(t *testing.T) {
	p := modem.NewPipe()
	ctx := context.Background()
	n, err := p.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = p.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestPipeReadFull(t *testing.T) {
	p := modem.NewPipe()
	ctx := context.Background()
	go func() {
		p.Write(ctx, []byte("abc")) //nolint:errcheck
		p.Write(ctx, []byte("def")) //nolint:errcheck
	}()
	buf := make([]byte, 6)
	require.NoError(t, p.ReadFull(ctx, buf))
	assert.Equal(t, "abcdef", string(buf))
}

func TestPipeReadCancelled(t *testing.T) {
	p := modem.NewPipe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Read(ctx, make([]byte, 1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPowerSignalFanout(t *testing.T) {
	ps := modem.NewPowerSignal()
	a := ps.Subscribe()
	b := ps.Subscribe()
	ps.Update(modem.PowerOn)

	ctx := context.Background()
	va, err := a.Recv(ctx)
	require.NoError(t, err)
	vb, err := b.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, modem.PowerOn, va)
	assert.Equal(t, modem.PowerOn, vb)
	assert.Equal(t, modem.PowerOn, ps.Last())
}

func TestPowerBroadcasterSuppressesNoopTransitions(t *testing.T) {
	ps := modem.NewPowerSignal()
	sub := ps.Subscribe()
	b := ps.Broadcaster()

	b.Broadcast(modem.PowerOn)
	b.Broadcast(modem.PowerOn) // suppressed
	b.Broadcast(modem.PowerOff)

	ctx := context.Background()
	v, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, modem.PowerOn, v)
	v, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, modem.PowerOff, v)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = sub.Recv(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "duplicate transition must not be delivered")
}

func TestClaimTCPSlotExhaustion(t *testing.T) {
	mc := modem.NewModemContext()
	for i := 0; i < modem.MaxTCPSlots; i++ {
		ordinal, state, ok := mc.ClaimTCPSlot()
		require.True(t, ok)
		require.NotNil(t, state)
		assert.Equal(t, i, ordinal)
	}
	_, _, ok := mc.ClaimTCPSlot()
	assert.False(t, ok)

	mc.ReleaseTCPSlot(3)
	ordinal, _, ok := mc.ClaimTCPSlot()
	require.True(t, ok)
	assert.Equal(t, 3, ordinal)
}

func TestClaimGNSSSingleOwner(t *testing.T) {
	mc := modem.NewModemContext()
	_, ok := mc.ClaimGNSS()
	require.True(t, ok)
	_, ok = mc.ClaimGNSS()
	assert.False(t, ok)
	mc.ReleaseGNSS()
	_, ok = mc.ClaimGNSS()
	assert.True(t, ok)
}
