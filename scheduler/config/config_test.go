package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/scheduler/server"
)

var tests = []string{"default", "local.memory", "local.thrift"}

// Tests to ensure config is properly specified
// and that they parse correctly
func TestGettingConfigurations(t *testing.T) {
	for _, configSelector := range tests {
		config, err := GetConfig(configSelector)
		assert.Nil(t, err, fmt.Sprintf("error getting scheduler config.  %s", err))
		_, err = config.Scheduler.CreateSchedulerConfig()
		assert.Nil(t, err)
		_, err = config.Transport.CreateThriftConfig()
		assert.Nil(t, err)
	}

	selector := "invalid.selector"
	config, err := GetConfig(selector)
	assert.NotNil(t, err, fmt.Sprintf("configuration returned for %s: %s", selector, config))
}

// TestCreatingConfigStruct test overriding default structure values with values from
// command line's specification.
func TestCreatingConfigStruct(t *testing.T) {
	config, err := GetConfig("local.memory")
	assert.Nil(t, err)
	assert.Equal(t, "memory", config.Transport.Type)
	assert.Equal(t, "none", config.Admin.Type)
	assert.Equal(t, "stateful", config.Scheduler.Type)
	assert.Equal(t, "250ms", config.Scheduler.PollTimeout)
	assert.Equal(t, "static", config.Workflow.Type)
}

func TestLiteralAndFileConfig(t *testing.T) {
	literal := `{"Scheduler": {"Type": "stateful", "DispatchFailurePolicy": "leak"}}`
	config, err := GetConfig(literal)
	assert.Nil(t, err)
	sc, err := config.Scheduler.CreateSchedulerConfig()
	assert.Nil(t, err)
	assert.Equal(t, server.LeakOnDispatchFailure, sc.DispatchFailurePolicy)
	assert.Equal(t, 250*time.Millisecond, sc.PollTimeout)
	assert.Equal(t, int32(common.DefaultMaxPoolCapacity), sc.MaxPoolCapacity)
	assert.Equal(t, "thrift", config.Transport.Type)

	f, err := ioutil.TempFile("", "hsched-config")
	assert.Nil(t, err)
	defer os.Remove(f.Name())
	f.WriteString(`{"Transport": {"Type": "thrift", "Self": 3, "Addr": ":0", "Peers": {"7": "host:1"}}}`)
	f.Close()

	config, err = GetConfig(f.Name())
	assert.Nil(t, err)
	tc, err := config.Transport.CreateThriftConfig()
	assert.Nil(t, err)
	assert.Equal(t, messages.PeerID(3), tc.Self)
	assert.Equal(t, map[messages.PeerID]string{7: "host:1"}, tc.Peers)
	assert.Equal(t, 5*time.Second, tc.DialTimeout)
}

func TestBadValues(t *testing.T) {
	_, err := (&SchedulerJSONConfig{PollTimeout: "soon"}).CreateSchedulerConfig()
	assert.NotNil(t, err)
	_, err = (&SchedulerJSONConfig{DispatchFailurePolicy: "retry"}).CreateSchedulerConfig()
	assert.NotNil(t, err)
	_, err = (&SchedulerJSONConfig{MaxPoolCapacity: -1}).CreateSchedulerConfig()
	assert.NotNil(t, err)
	_, err = (&TransportJSONConfig{Peers: map[string]string{"x": "host:1"}}).CreateThriftConfig()
	assert.NotNil(t, err)
	_, err = GetConfig(`{"Scheduler": `)
	assert.NotNil(t, err)
}
