package config

// SchedulerConfigs the map of available configurations
var SchedulerConfigs = map[string]string{
	"default":      defaultConfig,
	"local.memory": localMemory,
	"local.thrift": localThrift,
}

// defaultConfig the configuration values that are used for sections of a specific configuration whose Type is empty
const defaultConfig = `{
	"Scheduler": {
		"Type": "stateful",
		"PollTimeout": "250ms",
		"DispatchFailurePolicy": "release",
		"StatsLogInterval": "10s",
		"MaxPoolCapacity": 65536
	},
	"Transport": {
		"Type": "thrift",
		"Self": 0,
		"Addr": "localhost:9094",
		"DialTimeout": "5s",
		"MaxDialElapsed": "30s"
	},
	"Workflow": {
		"Type": "static"
	},
	"Admin": {
		"Type": "http",
		"Addr": "localhost:9093",
		"MaxConns": 16
	}
}`

// localMemory config for local.memory - !!! make sure this constant is added to SchedulerConfigs map above !!!
const localMemory = `{
	"Transport": {
		"Type": "memory"
	},
	"Admin": {
		"Type": "none"
	}
}`

// localThrift config for local.thrift - !!! make sure this constant is added to SchedulerConfigs map above !!!
const localThrift = `{
	"Scheduler": {
		"Type": "stateful",
		"PollTimeout": "100ms",
		"DispatchFailurePolicy": "release",
		"StatsLogInterval": "1s"
	},
	"Transport": {
		"Type": "thrift",
		"Self": 0,
		"Addr": "127.0.0.1:9094",
		"DialTimeout": "1s",
		"MaxDialElapsed": "10s"
	}
}`
