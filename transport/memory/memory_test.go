package memory

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/transport"
)

func TestSendPoll(t *testing.T) {
	hub := NewHub()
	server := hub.Endpoint(0)
	client := hub.Endpoint(3)

	env, err := messages.NewEnvelope(messages.KindFinishTask, 0, &messages.FinishTask{PoolID: 1, Tid: 2, Step: 3})
	require.NoError(t, err)
	require.NoError(t, client.Send(0, env))
	require.NoError(t, client.Send(0, env))

	got, err := server.Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, messages.PeerID(3), got[0].Sender)

	var ft messages.FinishTask
	require.NoError(t, got[1].Decode(&ft))
	assert.Equal(t, messages.FinishTask{PoolID: 1, Tid: 2, Step: 3}, ft)
	assert.Len(t, client.Sent(), 2)
}

func TestPollTimesOutEmpty(t *testing.T) {
	e := NewHub().Endpoint(0)
	start := time.Now()
	got, err := e.Poll(20 * time.Millisecond)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, time.Since(start) >= 20*time.Millisecond)
}

func TestPollWakesOnDelivery(t *testing.T) {
	hub := NewHub()
	server := hub.Endpoint(0)
	client := hub.Endpoint(1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		env, _ := messages.NewEnvelope(messages.KindExecDag, 0, &messages.ExecDag{ConfFile: "dag.yaml"})
		client.Send(0, env)
	}()
	got, err := server.Poll(5 * time.Second)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUnknownPeer(t *testing.T) {
	e := NewHub().Endpoint(0)
	env, _ := messages.NewEnvelope(messages.KindStopExecutor, 0, nil)
	err := e.Send(42, env)
	assert.Equal(t, transport.ErrUnknownPeer, errors.Cause(err))
}

func TestCompleteAndClose(t *testing.T) {
	hub := NewHub()
	server := hub.Endpoint(0)
	client := hub.Endpoint(1)
	env, _ := messages.NewEnvelope(messages.KindStopExecutor, 0, nil)
	require.NoError(t, client.Send(0, env))

	server.Finish()
	assert.False(t, server.Complete(), "still has queued input")
	got, _ := server.Poll(0)
	assert.Len(t, got, 1)
	assert.True(t, server.Complete())

	require.NoError(t, server.Close())
	assert.Equal(t, transport.ErrClosed, errors.Cause(client.Send(0, env)))
	_, err := server.Poll(0)
	assert.Equal(t, transport.ErrClosed, err)
}
