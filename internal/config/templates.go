package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "session", "":
		return sessionTemplate, nil
	case "roi":
		return roiTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const sessionTemplate = `# Launch the simulator locally. Set port to attach to a running server.
executable = "sumo"
configuration_file = "scenario.sumocfg"
switches = ["--step-length", "0.1"]
seed = 23423
host = "127.0.0.1"
port = 0

connect_timeout = "2s"
connect_attempts = 10
read_timeout = "0s"
write_timeout = "0s"

step_length = "100ms"
end = "10m"
margin = 25.0

penetration = 1.0
roi_roads = []
roi_rects = []
# roi_file = "roi.yaml"

metrics_addr = ":9464"
trace_path = ""
log_level = "info"

[templates]
passenger = "car"
bus = "bus"
emergency = "ambulance"
`

const roiTemplate = `roads: []
rects:
  - lower_left: [0, 0]
    upper_right: [1000, 1000]
`
