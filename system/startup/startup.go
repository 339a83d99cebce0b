package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/pinctrl"
)

var execCommand = exec.Command

// WriteStartupScript writes a boot script that drives every valve closed.
func WriteStartupScript(path string, valves []model.Valve) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Irrigation valve pin configuration at boot: all valves closed", "")

	for _, v := range valves {
		lines = append(lines, fmt.Sprintf("# pipe %s", v.Pipe))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", v.Pin, pinctrl.Drive(v.ActiveHigh, false)))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(contents), 0755); err != nil {
		return fmt.Errorf("write boot script: %w", err)
	}
	return nil
}

func InstallStartupService(scriptPath, unitPath string) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Close irrigation valves at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, scriptPath)

	return os.WriteFile(unitPath, []byte(unitContents), 0644)
}

func RunStartupScript(scriptPath string) error {
	cmd := execCommand("/bin/bash", scriptPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// InstallIrrigationService writes the main controller unit, ordered after the
// boot unit at bootUnitPath.
func InstallIrrigationService(unitPath, bootUnitPath, binary, configFile string) error {
	bootUnitName := filepath.Base(bootUnitPath)

	unit := fmt.Sprintf(`[Unit]
Description=Irrigation controller
After=%s
Requires=%s

[Service]
Type=simple
ExecStart=%s -config-file %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, bootUnitName, bootUnitName, binary, configFile)

	return os.WriteFile(unitPath, []byte(unit), 0644)
}
