package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dataspaces/hsched/common"
	"github.com/dataspaces/hsched/messages"
	"github.com/dataspaces/hsched/scheduler/server"
	"github.com/dataspaces/hsched/transport/thrifttcp"
)

// JSONConfigs config structure holding original json configs
type JSONConfigs struct {
	Scheduler SchedulerJSONConfig `json:"Scheduler"`
	Transport TransportJSONConfig `json:"Transport"`
	Workflow  WorkflowJSONConfig  `json:"Workflow"`
	Admin     AdminJSONConfig     `json:"Admin"`
}

func (s JSONConfigs) String() string {
	return fmt.Sprintf("\n%s\n%s\n%s\n%s", s.Scheduler, s.Transport, s.Workflow, s.Admin)
}

type SchedulerJSONConfig struct {
	Type                  string `json:"Type"`                  // stateful
	PollTimeout           string `json:"PollTimeout"`           // default to 250ms
	DispatchFailurePolicy string `json:"DispatchFailurePolicy"` // release or leak, default to release
	StatsLogInterval      string `json:"StatsLogInterval"`      // default to 10s
	MaxPoolCapacity       int32  `json:"MaxPoolCapacity"`       // default to 65536
}

func (sc SchedulerJSONConfig) String() string {
	return fmt.Sprintf("SchedulerJSONConfig: Type: %s, PollTimeout: %s, DispatchFailurePolicy: %s, StatsLogInterval: %s, MaxPoolCapacity: %d",
		sc.Type, sc.PollTimeout, sc.DispatchFailurePolicy, sc.StatsLogInterval, sc.MaxPoolCapacity)
}

type TransportJSONConfig struct {
	Type           string            `json:"Type"` // memory or thrift
	Self           int32             `json:"Self"` // peer id of the scheduler
	Addr           string            `json:"Addr"`
	Peers          map[string]string `json:"Peers"` // peer id -> host:port
	DialTimeout    string            `json:"DialTimeout"`
	MaxDialElapsed string            `json:"MaxDialElapsed"`

	// Deployment shape, logged at startup.
	Servers      int    `json:"Servers"`
	ComputeNodes int    `json:"ComputeNodes"`
	StagingConf  string `json:"StagingConf"`
}

func (tc TransportJSONConfig) String() string {
	return fmt.Sprintf("TransportJSONConfig: Type: %s, Self: %d, Addr: %s, Peers: %v, DialTimeout: %s, MaxDialElapsed: %s, "+
		"Servers: %d, ComputeNodes: %d, StagingConf: %s",
		tc.Type, tc.Self, tc.Addr, tc.Peers, tc.DialTimeout, tc.MaxDialElapsed, tc.Servers, tc.ComputeNodes, tc.StagingConf)
}

type WorkflowJSONConfig struct {
	Type string `json:"Type"` // static
}

func (wc WorkflowJSONConfig) String() string {
	return fmt.Sprintf("WorkflowJSONConfig: Type: %s", wc.Type)
}

type AdminJSONConfig struct {
	Type     string `json:"Type"` // http or none
	Addr     string `json:"Addr"`
	MaxConns int    `json:"MaxConns"`
}

func (ac AdminJSONConfig) String() string {
	return fmt.Sprintf("AdminJSONConfig: Type: %s, Addr: %s, MaxConns: %d", ac.Type, ac.Addr, ac.MaxConns)
}

// GetConfigText resolves configSelector as a preset name, a path to a json
// file, or literal json, in that order.
func GetConfigText(configSelector string) ([]byte, error) {
	if configText, ok := SchedulerConfigs[configSelector]; ok {
		return []byte(configText), nil
	}
	if strings.HasPrefix(strings.TrimSpace(configSelector), "{") {
		return []byte(configSelector), nil
	}
	if _, err := os.Stat(configSelector); err == nil {
		return ioutil.ReadFile(configSelector)
	}
	keys := make([]string, 0, len(SchedulerConfigs))
	for k := range SchedulerConfigs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, fmt.Errorf("invalid configuration %s, supported values are %v, a json file or literal json", configSelector, keys)
}

// GetConfig parses the selected config, taking any section whose Type is
// empty from the default preset.
func GetConfig(configSelector string) (*JSONConfigs, error) {
	defaultConfig := &JSONConfigs{}
	if err := json.Unmarshal([]byte(SchedulerConfigs["default"]), defaultConfig); err != nil {
		return nil, fmt.Errorf("couldn't parse the default config: %v", err)
	}

	configText, err := GetConfigText(configSelector)
	if err != nil {
		return nil, err
	}
	config := &JSONConfigs{}
	if err := json.Unmarshal(configText, config); err != nil {
		return nil, fmt.Errorf("couldn't parse top-level config: %v", err)
	}

	if config.Scheduler.Type == "" {
		log.Infof("using default Scheduler config")
		config.Scheduler = defaultConfig.Scheduler
	}
	if config.Transport.Type == "" {
		log.Infof("using default Transport config")
		config.Transport = defaultConfig.Transport
	}
	if config.Workflow.Type == "" {
		log.Infof("using default Workflow config")
		config.Workflow = defaultConfig.Workflow
	}
	if config.Admin.Type == "" {
		log.Infof("using default Admin config")
		config.Admin = defaultConfig.Admin
	}
	return config, nil
}

func parseDuration(name, value string, dflt time.Duration) (time.Duration, error) {
	if value == "" {
		return dflt, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "bad %s", name)
	}
	return d, nil
}

func (sc *SchedulerJSONConfig) CreateSchedulerConfig() (*server.SchedulerConfiguration, error) {
	var err error
	serverConfig := &server.SchedulerConfiguration{}
	if serverConfig.PollTimeout, err = parseDuration("PollTimeout", sc.PollTimeout, common.DefaultPollTimeout); err != nil {
		return nil, err
	}
	if serverConfig.StatsLogInterval, err = parseDuration("StatsLogInterval", sc.StatsLogInterval, common.DefaultStatsLogInterval); err != nil {
		return nil, err
	}
	if serverConfig.DispatchFailurePolicy, err = server.ParseDispatchFailurePolicy(sc.DispatchFailurePolicy); err != nil {
		return nil, err
	}
	switch {
	case sc.MaxPoolCapacity < 0:
		return nil, errors.Errorf("MaxPoolCapacity must not be negative, got %d", sc.MaxPoolCapacity)
	case sc.MaxPoolCapacity == 0:
		serverConfig.MaxPoolCapacity = common.DefaultMaxPoolCapacity
	default:
		serverConfig.MaxPoolCapacity = sc.MaxPoolCapacity
	}
	return serverConfig, nil
}

// PeerMap converts the json peer table, keyed by decimal peer id.
func (tc *TransportJSONConfig) PeerMap() (map[messages.PeerID]string, error) {
	peers := map[messages.PeerID]string{}
	for k, addr := range tc.Peers {
		id, err := strconv.ParseInt(k, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "bad peer id %q", k)
		}
		peers[messages.PeerID(id)] = addr
	}
	return peers, nil
}

func (tc *TransportJSONConfig) CreateThriftConfig() (*thrifttcp.Config, error) {
	var err error
	peers, err := tc.PeerMap()
	if err != nil {
		return nil, err
	}
	cfg := &thrifttcp.Config{Self: messages.PeerID(tc.Self), Addr: tc.Addr, Peers: peers}
	if cfg.DialTimeout, err = parseDuration("DialTimeout", tc.DialTimeout, common.DefaultDialTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxDialElapsed, err = parseDuration("MaxDialElapsed", tc.MaxDialElapsed, common.DefaultMaxDialElapsed); err != nil {
		return nil, err
	}
	return cfg, nil
}
